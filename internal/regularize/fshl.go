package regularize

import (
	"spvregular/internal/ir"
	"spvregular/internal/types"
)

// lowerFshl replaces llvm.fshl by a helper computing the rotate with plain
// shifts. One helper exists per return type.
func (p *pass) lowerFshl(call ir.ValueID, callee *ir.Func) error {
	if _, err := p.wantArgs(call, callee, 3); err != nil {
		return err
	}
	ty := p.m.TypeOf(call)
	width, ok := p.ts.ScalarWidth(ty)
	if !ok {
		return invariantf("@%s returns %s", callee.Name, p.ts.String(ty))
	}
	helper, build, err := p.helper(helperName(callee.Name, false), p.ts.RegisterFn([]types.TypeID{ty, ty, ty}, ty))
	if err != nil {
		return err
	}
	if build {
		p.buildFshl(helper, ty, width)
		p.timer.Count(CountHelpers, 1)
	}
	p.retarget(call, callee, helper, CountFshl)
	return nil
}

// buildFshl emits
//
//	r = c urem N
//	ret (a << r) | (b >> (N - r))
//
// with N the lane width, splat across vector lanes. A zero rotate shifts b
// by N, which yields zero.
func (p *pass) buildFshl(f *ir.Func, ty types.TypeID, width uint8) {
	b := p.b
	b.SetInsertPoint(p.m.NewBlock(f, "rotate"))
	hi, lo, amount := f.Params[0], f.Params[1], f.Params[2]
	n := p.m.ConstInt(ty, uint64(width))
	r := b.Binary(ir.OpURem, amount, n, "")
	shl := b.Binary(ir.OpShl, hi, r, "")
	sub := b.Binary(ir.OpSub, n, r, "")
	lshr := b.Binary(ir.OpLShr, lo, sub, "")
	b.Ret(b.Binary(ir.OpOr, shl, lshr, ""))
}
