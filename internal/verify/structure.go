package verify

import (
	"fmt"

	"spvregular/internal/diag"
	"spvregular/internal/ir"
	"spvregular/internal/types"
)

// Structure checks the graph invariants every module must satisfy: blocks
// end in exactly one terminator, operands are live and mirrored by use-lists,
// operand types agree with each instruction kind, and control flow stays
// inside its function.
func Structure(m *ir.Module) *diag.Bag {
	bag := diag.NewBag(maxDiagnostics)
	if m == nil {
		return bag
	}
	for _, f := range m.Funcs {
		if m.Func(f.Name) != f {
			bag.Add(diag.NewError(diag.VerDuplicateName, diag.At(f.Name),
				fmt.Sprintf("function @%s is shadowed by another definition", f.Name)))
		}
		c := &checker{m: m, ts: m.Types, f: f, bag: bag}
		c.function()
	}
	return bag
}

type checker struct {
	m   *ir.Module
	ts  *types.Interner
	f   *ir.Func
	bag *diag.Bag
}

func (c *checker) errorf(loc diag.Location, code diag.Code, format string, args ...any) {
	c.bag.Add(diag.NewError(code, loc, fmt.Sprintf(format, args...)))
}

func (c *checker) function() {
	for _, p := range c.f.Params {
		c.checkUses(p, diag.At(c.f.Name))
	}
	for _, b := range c.f.Blocks {
		if len(b.Instrs) == 0 {
			c.errorf(diag.Location{Func: c.f.Name, Block: blockName(b), Value: ir.NoValueID},
				diag.VerMissingTerminator, "empty block")
			continue
		}
		for i, id := range b.Instrs {
			v := c.m.Value(id)
			if v == nil || v.Kind != ir.ValueInstr {
				c.errorf(diag.Location{Func: c.f.Name, Block: blockName(b), Value: id},
					diag.VerErasedOperand, "block lists erased value %%%d", id)
				continue
			}
			in := v.Instr
			loc := diag.AtValue(c.f.Name, blockName(b), id)
			if in.Block != b {
				c.errorf(loc, diag.VerForeignBlock, "instruction is placed in %s", blockName(in.Block))
			}
			last := i == len(b.Instrs)-1
			switch {
			case last && !in.Kind.IsTerminator():
				c.errorf(loc, diag.VerMissingTerminator, "block ends with %s", in.Kind)
			case !last && in.Kind.IsTerminator():
				c.errorf(loc, diag.VerMisplacedTerminator, "%s before the end of the block", in.Kind)
			}
			c.checkOperands(id, in, loc)
			c.checkUses(id, loc)
			c.checkKind(v, loc)
		}
	}
}

// checkOperands verifies that operands are live, belong to this function
// when local, and list the instruction in their use-lists.
func (c *checker) checkOperands(id ir.ValueID, in *ir.Instr, loc diag.Location) {
	for slot, op := range in.Ops {
		ov := c.m.Value(op)
		if ov == nil {
			c.errorf(loc, diag.VerErasedOperand, "operand %d refers to erased value %%%d", slot, op)
			continue
		}
		switch ov.Kind {
		case ir.ValueArg:
			if ov.Func != c.f {
				c.errorf(loc, diag.VerForeignBlock, "operand %d is a parameter of @%s", slot, ov.Func.Name)
			}
		case ir.ValueInstr:
			if ov.Instr.Block == nil || ov.Instr.Block.Func() != c.f {
				c.errorf(loc, diag.VerForeignBlock, "operand %d is an instruction outside @%s", slot, c.f.Name)
			}
		}
		found := false
		for _, u := range ov.Uses() {
			if u.User == id && u.Slot == slot {
				found = true
				break
			}
		}
		if !found {
			c.errorf(loc, diag.VerUseListMismatch, "operand %d (%%%d) does not list this use", slot, op)
		}
	}
}

// checkUses verifies that every recorded use of id is backed by an operand.
func (c *checker) checkUses(id ir.ValueID, loc diag.Location) {
	for _, u := range c.m.Value(id).Uses() {
		user := c.m.Instr(u.User)
		if user == nil || u.Slot >= len(user.Ops) || user.Ops[u.Slot] != id {
			c.errorf(loc, diag.VerUseListMismatch, "stale use by %%%d slot %d", u.User, u.Slot)
		}
	}
}

func (c *checker) typeOf(id ir.ValueID) types.TypeID {
	return c.m.TypeOf(id)
}

func (c *checker) want(loc diag.Location, what string, got, want types.TypeID) {
	if got != want {
		c.errorf(loc, diag.VerTypeMismatch, "%s has type %s, want %s", what, c.ts.String(got), c.ts.String(want))
	}
}

func (c *checker) arity(loc diag.Location, in *ir.Instr, n int) bool {
	if len(in.Ops) != n {
		c.errorf(loc, diag.VerTypeMismatch, "%s takes %d operands, has %d", in.Kind, n, len(in.Ops))
		return false
	}
	return true
}

func (c *checker) isPointer(ty types.TypeID) bool {
	return c.ts.KindOf(ty) == types.KindPointer
}

func (c *checker) inFunc(b *ir.Block) bool {
	return b != nil && b.Func() == c.f && b.Index() >= 0
}

func (c *checker) checkKind(v *ir.Value, loc diag.Location) {
	in := v.Instr
	void := c.ts.Builtins().Void
	i1 := c.ts.Builtins().I1
	switch in.Kind {
	case ir.InstrBinary:
		if !c.arity(loc, in, 2) {
			return
		}
		if !c.ts.IsIntLike(v.Type) {
			c.errorf(loc, diag.VerTypeMismatch, "%s on non-integer type %s", in.Binary.Op, c.ts.String(v.Type))
		}
		c.want(loc, "lhs", c.typeOf(in.Ops[0]), v.Type)
		c.want(loc, "rhs", c.typeOf(in.Ops[1]), v.Type)
	case ir.InstrICmp:
		if !c.arity(loc, in, 2) {
			return
		}
		lt := c.typeOf(in.Ops[0])
		c.want(loc, "rhs", c.typeOf(in.Ops[1]), lt)
		c.want(loc, "result", v.Type, c.ts.WithScalar(lt, i1))
	case ir.InstrSelect:
		if !c.arity(loc, in, 3) {
			return
		}
		if w, ok := c.ts.ScalarWidth(c.typeOf(in.Ops[0])); !ok || w != 1 {
			c.errorf(loc, diag.VerTypeMismatch, "select condition is %s", c.ts.String(c.typeOf(in.Ops[0])))
		}
		c.want(loc, "true value", c.typeOf(in.Ops[1]), v.Type)
		c.want(loc, "false value", c.typeOf(in.Ops[2]), v.Type)
	case ir.InstrCast:
		c.arity(loc, in, 1)
	case ir.InstrCall:
		c.checkCall(in, v, loc)
	case ir.InstrExtractValue:
		if !c.arity(loc, in, 1) {
			return
		}
		if ft, ok := c.fieldPath(loc, c.typeOf(in.Ops[0]), in.Field.Indices); ok {
			c.want(loc, "result", v.Type, ft)
		}
	case ir.InstrInsertValue:
		if !c.arity(loc, in, 2) {
			return
		}
		c.want(loc, "result", v.Type, c.typeOf(in.Ops[0]))
		if ft, ok := c.fieldPath(loc, c.typeOf(in.Ops[0]), in.Field.Indices); ok {
			c.want(loc, "inserted value", c.typeOf(in.Ops[1]), ft)
		}
	case ir.InstrLoad:
		if c.arity(loc, in, 1) && !c.isPointer(c.typeOf(in.Ops[0])) {
			c.errorf(loc, diag.VerTypeMismatch, "load from non-pointer")
		}
	case ir.InstrStore:
		if c.arity(loc, in, 2) && !c.isPointer(c.typeOf(in.Ops[1])) {
			c.errorf(loc, diag.VerTypeMismatch, "store to non-pointer")
		}
	case ir.InstrGEP:
		if !c.arity(loc, in, 2) {
			return
		}
		c.want(loc, "result", v.Type, c.typeOf(in.Ops[0]))
		if !c.isPointer(v.Type) || !c.ts.IsIntLike(c.typeOf(in.Ops[1])) {
			c.errorf(loc, diag.VerTypeMismatch, "getelementptr needs a pointer and an integer index")
		}
	case ir.InstrCmpXchg:
		if !c.arity(loc, in, 3) {
			return
		}
		if !c.isPointer(c.typeOf(in.Ops[0])) {
			c.errorf(loc, diag.VerTypeMismatch, "cmpxchg on non-pointer")
		}
		vt := c.typeOf(in.Ops[1])
		c.want(loc, "new value", c.typeOf(in.Ops[2]), vt)
		if info, ok := c.ts.StructInfo(v.Type); !ok || len(info.Fields) != 2 || info.Fields[0] != vt || info.Fields[1] != i1 {
			c.errorf(loc, diag.VerTypeMismatch, "cmpxchg result is %s, want { %s, i1 }", c.ts.String(v.Type), c.ts.String(vt))
		}
	case ir.InstrPhi:
		if len(in.Ops) != len(in.Phi.Blocks) {
			c.errorf(loc, diag.VerPhiMismatch, "%d incoming values for %d blocks", len(in.Ops), len(in.Phi.Blocks))
			return
		}
		for i, op := range in.Ops {
			if !c.inFunc(in.Phi.Blocks[i]) {
				c.errorf(loc, diag.VerForeignBlock, "incoming block %d is not in @%s", i, c.f.Name)
			}
			c.want(loc, fmt.Sprintf("incoming value %d", i), c.typeOf(op), v.Type)
		}
	case ir.InstrBr, ir.InstrCondBr:
		want := 1
		if in.Kind == ir.InstrCondBr {
			want = 2
			if c.arity(loc, in, 1) {
				c.want(loc, "condition", c.typeOf(in.Ops[0]), i1)
			}
		}
		if len(in.Br.Targets) != want {
			c.errorf(loc, diag.VerForeignBlock, "%s has %d targets", in.Kind, len(in.Br.Targets))
			return
		}
		for _, t := range in.Br.Targets {
			if !c.inFunc(t) {
				c.errorf(loc, diag.VerForeignBlock, "branch target is not in @%s", c.f.Name)
			}
		}
	case ir.InstrRet:
		res := c.f.Result()
		switch {
		case res == void && len(in.Ops) != 0:
			c.errorf(loc, diag.VerTypeMismatch, "ret with a value in a void function")
		case res != void && len(in.Ops) != 1:
			c.errorf(loc, diag.VerTypeMismatch, "ret without a value, want %s", c.ts.String(res))
		case res != void:
			c.want(loc, "returned value", c.typeOf(in.Ops[0]), res)
		}
	case ir.InstrUnreachable:
	default:
		c.errorf(loc, diag.VerTypeMismatch, "unknown instruction kind %s", in.Kind)
	}
}

func (c *checker) checkCall(in *ir.Instr, v *ir.Value, loc diag.Location) {
	if len(in.Ops) == 0 {
		c.errorf(loc, diag.VerBadCallee, "call without callee")
		return
	}
	sig := types.NoTypeID
	callee := c.m.Value(in.Ops[0])
	switch {
	case callee == nil:
		return
	case callee.Kind == ir.ValueFunc:
		sig = callee.Func.Sig
	default:
		if tt, ok := c.ts.Lookup(callee.Type); ok && tt.Kind == types.KindPointer && c.ts.KindOf(tt.Elem) == types.KindFn {
			sig = tt.Elem
		}
	}
	info, ok := c.ts.FnInfo(sig)
	if !ok {
		c.errorf(loc, diag.VerBadCallee, "callee has type %s", c.ts.String(callee.Type))
		return
	}
	args := in.Args()
	if len(args) != len(info.Params) {
		c.errorf(loc, diag.VerArgCount, "%d arguments, callee takes %d", len(args), len(info.Params))
		return
	}
	for i, a := range args {
		c.want(loc, fmt.Sprintf("argument %d", i), c.typeOf(a), info.Params[i])
	}
	c.want(loc, "result", v.Type, info.Result)
}

// fieldPath resolves an index path through nested aggregates.
func (c *checker) fieldPath(loc diag.Location, agg types.TypeID, path []uint32) (types.TypeID, bool) {
	if len(path) == 0 {
		c.errorf(loc, diag.VerBadFieldIndex, "empty index path")
		return types.NoTypeID, false
	}
	ty := agg
	for _, idx := range path {
		next := c.ts.FieldType(ty, idx)
		if next == types.NoTypeID {
			c.errorf(loc, diag.VerBadFieldIndex, "index %d out of range for %s", idx, c.ts.String(ty))
			return types.NoTypeID, false
		}
		ty = next
	}
	return ty, true
}
