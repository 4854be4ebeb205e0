package regularize

import (
	"spvregular/internal/ir"
	"spvregular/internal/types"
)

func (p *pass) lowerUMulWithOverflow(call ir.ValueID, callee *ir.Func) error {
	if _, err := p.wantArgs(call, callee, 2); err != nil {
		return err
	}
	ret := p.m.TypeOf(call)
	ty := p.ts.FieldType(ret, 0)
	if !p.ts.IsIntLike(ty) {
		return invariantf("@%s returns %s", callee.Name, p.ts.String(ret))
	}
	helper, build, err := p.helper(helperName(callee.Name, false), p.ts.RegisterFn([]types.TypeID{ty, ty}, ret))
	if err != nil {
		return err
	}
	if build {
		p.buildUMulWithOverflow(helper, ty, ret)
		p.timer.Count(CountHelpers, 1)
	}
	p.retarget(call, callee, helper, CountUMulOverflow)
	return nil
}

// buildUMulWithOverflow emits
//
//	p   = a * b
//	ovf = a != 0 && p / a != b
//	ret { p, ovf }
//
// The division runs on select(a == 0, 1, a) so it never divides by zero.
func (p *pass) buildUMulWithOverflow(f *ir.Func, ty, ret types.TypeID) {
	b := p.b
	b.SetInsertPoint(p.m.NewBlock(f, "entry"))
	lhs, rhs := f.Params[0], f.Params[1]
	mul := b.Binary(ir.OpMul, lhs, rhs, "")
	isZero := b.ICmp(ir.PredEQ, lhs, p.m.ConstInt(ty, 0), "")
	divisor := b.Select(isZero, p.m.ConstInt(ty, 1), lhs, "")
	quot := b.Binary(ir.OpUDiv, mul, divisor, "")
	differs := b.ICmp(ir.PredNE, quot, rhs, "")
	noOverflow := p.m.ConstInt(p.ts.WithScalar(ty, p.ts.Builtins().I1), 0)
	overflow := b.Select(isZero, noOverflow, differs, "")
	agg := b.InsertValue(p.m.Undef(ret), mul, 0, "")
	b.Ret(b.InsertValue(agg, overflow, 1, ""))
}
