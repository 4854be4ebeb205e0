package interp

import (
	"fortio.org/safecast"

	"spvregular/internal/ir"
	"spvregular/internal/types"
)

func (vm *Machine) exec(fr *frame, id ir.ValueID, in *ir.Instr) (Value, error) {
	ty := vm.M.TypeOf(id)
	ops, err := vm.operands(fr, in.Ops)
	if err != nil {
		return Value{}, err
	}
	switch in.Kind {
	case ir.InstrBinary:
		return vm.binary(in.Binary.Op, ops[0], ops[1])
	case ir.InstrICmp:
		return vm.icmp(in.ICmp.Pred, ops[0], ops[1], ty)
	case ir.InstrSelect:
		return vm.selectOp(ops[0], ops[1], ops[2])
	case ir.InstrCast:
		return vm.cast(in.Cast.Op, ops[0], ty)
	case ir.InstrCall:
		callee := ops[0]
		if callee.Func == nil {
			return Value{}, newError(CodeUnsupportedCall, "indirect call through a non-function value")
		}
		return vm.CallFunc(callee.Func, ops[1:])
	case ir.InstrExtractValue:
		return extract(ops[0], in.Field.Indices)
	case ir.InstrInsertValue:
		return insert(ops[0], ops[1], in.Field.Indices)
	case ir.InstrLoad:
		v, ok := vm.Mem.Load(ops[0].Scalar())
		if !ok {
			return Value{}, newError(CodeUninitialized, "load from unwritten address %#x", ops[0].Scalar())
		}
		return v, nil
	case ir.InstrStore:
		vm.Mem.Store(ops[1].Scalar(), ops[0])
		return Value{Type: ty}, nil
	case ir.InstrGEP:
		return Int(ty, ops[0].Scalar()+ops[1].Scalar()), nil
	case ir.InstrCmpXchg:
		old, ok := vm.Mem.Load(ops[0].Scalar())
		if !ok {
			return Value{}, newError(CodeUninitialized, "cmpxchg on unwritten address %#x", ops[0].Scalar())
		}
		swapped := old.Equal(ops[1])
		if swapped {
			vm.Mem.Store(ops[0].Scalar(), ops[2])
		}
		return Value{Type: ty, Fields: []Value{old, Int(vm.Types.Builtins().I1, boolBit(swapped))}}, nil
	default:
		return Value{}, newError(CodeUnimplemented, "instruction %s", in.Kind)
	}
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (vm *Machine) width(ty types.TypeID) uint8 {
	if w, ok := vm.Types.ScalarWidth(ty); ok {
		return w
	}
	return 64
}

func signExtend(v uint64, width uint8) int64 {
	if width >= 64 {
		return int64(v)
	}
	shift := 64 - width
	return int64(v<<shift) >> shift
}

func (vm *Machine) binary(op ir.BinaryOp, a, b Value) (Value, error) {
	if len(a.Lanes) != len(b.Lanes) || len(a.Lanes) == 0 {
		return Value{}, newError(CodeTypeMismatch, "%s on %d and %d lanes", op, len(a.Lanes), len(b.Lanes))
	}
	w := vm.width(a.Type)
	mask := ir.Mask(w)
	out := Value{Type: a.Type, Lanes: make([]uint64, len(a.Lanes))}
	for i := range a.Lanes {
		x, y := a.Lanes[i], b.Lanes[i]
		var r uint64
		switch op {
		case ir.OpAdd:
			r = x + y
		case ir.OpSub:
			r = x - y
		case ir.OpMul:
			r = x * y
		case ir.OpUDiv, ir.OpURem, ir.OpSDiv, ir.OpSRem:
			if y == 0 {
				return Value{}, newError(CodeDivByZero, "%s by zero", op)
			}
			switch op {
			case ir.OpUDiv:
				r = x / y
			case ir.OpURem:
				r = x % y
			case ir.OpSDiv:
				r = uint64(signExtend(x, w) / signExtend(y, w))
			default:
				r = uint64(signExtend(x, w) % signExtend(y, w))
			}
		case ir.OpShl:
			if y < uint64(w) {
				r = x << y
			}
		case ir.OpLShr:
			if y < uint64(w) {
				r = x >> y
			}
		case ir.OpAShr:
			sx := signExtend(x, w)
			if y >= uint64(w) {
				y = uint64(w) - 1
			}
			r = uint64(sx >> y)
		case ir.OpAnd:
			r = x & y
		case ir.OpOr:
			r = x | y
		case ir.OpXor:
			r = x ^ y
		default:
			return Value{}, newError(CodeUnimplemented, "binary operator %s", op)
		}
		out.Lanes[i] = r & mask
	}
	return out, nil
}

func (vm *Machine) icmp(pred ir.ICmpPred, a, b Value, ty types.TypeID) (Value, error) {
	if len(a.Lanes) != len(b.Lanes) {
		return Value{}, newError(CodeTypeMismatch, "icmp on %d and %d lanes", len(a.Lanes), len(b.Lanes))
	}
	if a.Func != nil || b.Func != nil {
		return Int(ty, boolBit((a.Func == b.Func) == (pred == ir.PredEQ))), nil
	}
	w := vm.width(a.Type)
	out := Value{Type: ty, Lanes: make([]uint64, len(a.Lanes))}
	for i := range a.Lanes {
		x, y := a.Lanes[i], b.Lanes[i]
		sx, sy := signExtend(x, w), signExtend(y, w)
		var r bool
		switch pred {
		case ir.PredEQ:
			r = x == y
		case ir.PredNE:
			r = x != y
		case ir.PredUGT:
			r = x > y
		case ir.PredUGE:
			r = x >= y
		case ir.PredULT:
			r = x < y
		case ir.PredULE:
			r = x <= y
		case ir.PredSGT:
			r = sx > sy
		case ir.PredSGE:
			r = sx >= sy
		case ir.PredSLT:
			r = sx < sy
		case ir.PredSLE:
			r = sx <= sy
		default:
			return Value{}, newError(CodeUnimplemented, "predicate %s", pred)
		}
		out.Lanes[i] = boolBit(r)
	}
	return out, nil
}

func (vm *Machine) selectOp(cond, t, f Value) (Value, error) {
	if len(cond.Lanes) == 1 {
		if cond.Bool() {
			return t, nil
		}
		return f, nil
	}
	if len(cond.Lanes) != len(t.Lanes) || len(t.Lanes) != len(f.Lanes) {
		return Value{}, newError(CodeTypeMismatch, "select lane counts differ")
	}
	out := Value{Type: t.Type, Lanes: make([]uint64, len(t.Lanes))}
	for i, c := range cond.Lanes {
		if c != 0 {
			out.Lanes[i] = t.Lanes[i]
		} else {
			out.Lanes[i] = f.Lanes[i]
		}
	}
	return out, nil
}

func (vm *Machine) cast(op ir.CastOp, v Value, ty types.TypeID) (Value, error) {
	switch op {
	case ir.CastBitcast, ir.CastAddrSpace, ir.CastPtrToInt, ir.CastIntToPtr:
		// cells are untyped; only the static type changes
		out := v
		out.Type = ty
		out.Lanes = append([]uint64(nil), v.Lanes...)
		if op == ir.CastPtrToInt {
			out.Lanes[0] &= laneMask(vm.Types, ty)
		}
		return out, nil
	case ir.CastZExt, ir.CastTrunc, ir.CastSExt:
		from := vm.width(v.Type)
		mask := ir.Mask(vm.width(ty))
		out := Value{Type: ty, Lanes: make([]uint64, len(v.Lanes))}
		for i, l := range v.Lanes {
			if op == ir.CastSExt {
				l = uint64(signExtend(l, from))
			}
			out.Lanes[i] = l & mask
		}
		return out, nil
	default:
		return Value{}, newError(CodeUnimplemented, "cast %s", op)
	}
}

func extract(agg Value, path []uint32) (Value, error) {
	cur := agg
	for _, idx := range path {
		i, err := safecast.Conv[int](idx)
		if err != nil || i >= len(cur.Fields) {
			return Value{}, newError(CodeOutOfBounds, "extractvalue index %d of %d fields", idx, len(cur.Fields))
		}
		cur = cur.Fields[i]
	}
	return cur, nil
}

func insert(agg, v Value, path []uint32) (Value, error) {
	if len(path) == 0 {
		return v, nil
	}
	i, err := safecast.Conv[int](path[0])
	if err != nil || i >= len(agg.Fields) {
		return Value{}, newError(CodeOutOfBounds, "insertvalue index %d of %d fields", path[0], len(agg.Fields))
	}
	inner, err := insert(agg.Fields[i], v, path[1:])
	if err != nil {
		return Value{}, err
	}
	out := agg
	out.Fields = append([]Value(nil), agg.Fields...)
	out.Fields[i] = inner
	return out, nil
}
