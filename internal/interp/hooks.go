package interp

import (
	"math/bits"

	"fortio.org/safecast"

	"spvregular/internal/ir"
)

// Native semantics of the intrinsics the regularizer rewrites and of the
// target compare-exchange builtin, so a module can be run before and after
// the pass and the results compared.
func installDefaultHooks(vm *Machine) {
	vm.RegisterPrefix("llvm.memset.", hookMemset)
	vm.RegisterPrefix("llvm.fshl.", hookFshl)
	vm.RegisterPrefix("llvm.umul.with.overflow.", hookUMulWithOverflow)
	vm.RegisterPrefix("__spirv_AtomicCompareExchange", hookAtomicCompareExchange)
}

// hookMemset stores the byte into len consecutive cells: (dest, val, len, isvolatile).
func hookMemset(vm *Machine, f *ir.Func, args []Value) (Value, error) {
	if len(args) != 4 {
		return Value{}, newError(CodeBadArgs, "@%s takes 4 arguments", f.Name)
	}
	n, err := safecast.Conv[int](args[2].Scalar())
	if err != nil {
		return Value{}, newError(CodeOutOfBounds, "@%s length %d: %v", f.Name, args[2].Scalar(), err)
	}
	dest := args[0].Scalar()
	for i := range n {
		vm.Mem.Store(dest+uint64(i), args[1])
	}
	return Value{Type: f.Result()}, nil
}

// hookFshl computes (a:b << (c mod N)) >> N per lane.
func hookFshl(vm *Machine, f *ir.Func, args []Value) (Value, error) {
	if len(args) != 3 {
		return Value{}, newError(CodeBadArgs, "@%s takes 3 arguments", f.Name)
	}
	a, b, c := args[0], args[1], args[2]
	w := vm.width(a.Type)
	mask := ir.Mask(w)
	out := Value{Type: a.Type, Lanes: make([]uint64, len(a.Lanes))}
	for i := range a.Lanes {
		r := c.Lanes[i] % uint64(w)
		if r == 0 {
			out.Lanes[i] = a.Lanes[i]
			continue
		}
		out.Lanes[i] = (a.Lanes[i]<<r | b.Lanes[i]>>(uint64(w)-r)) & mask
	}
	return out, nil
}

// hookUMulWithOverflow returns { a*b mod 2^N, a*b >= 2^N }.
func hookUMulWithOverflow(vm *Machine, f *ir.Func, args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, newError(CodeBadArgs, "@%s takes 2 arguments", f.Name)
	}
	a, b := args[0], args[1]
	res := f.Result()
	ovfTy := vm.Types.FieldType(res, 1)
	mask := ir.Mask(vm.width(a.Type))
	prod := Value{Type: a.Type, Lanes: make([]uint64, len(a.Lanes))}
	ovf := Value{Type: ovfTy, Lanes: make([]uint64, len(a.Lanes))}
	for i := range a.Lanes {
		hi, lo := bits.Mul64(a.Lanes[i], b.Lanes[i])
		prod.Lanes[i] = lo & mask
		ovf.Lanes[i] = boolBit(hi != 0 || lo > mask)
	}
	return Value{Type: res, Fields: []Value{prod, ovf}}, nil
}

// hookAtomicCompareExchange follows the target operand order
// (ptr, scope, equal semantics, unequal semantics, value, comparator) and
// returns the original value.
func hookAtomicCompareExchange(vm *Machine, f *ir.Func, args []Value) (Value, error) {
	if len(args) != 6 {
		return Value{}, newError(CodeBadArgs, "@%s takes 6 arguments", f.Name)
	}
	addr := args[0].Scalar()
	old, ok := vm.Mem.Load(addr)
	if !ok {
		return Value{}, newError(CodeUninitialized, "@%s on unwritten address %#x", f.Name, addr)
	}
	if old.Equal(args[5]) {
		vm.Mem.Store(addr, args[4])
	}
	return old, nil
}
