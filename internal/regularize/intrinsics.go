package regularize

import (
	"strings"

	"spvregular/internal/ir"
	"spvregular/internal/types"
)

// helperName derives the name of the function replacing an intrinsic:
// llvm.fshl.i32 becomes spirv.llvm_fshl_i32.
func helperName(intrinsic string, volatile bool) string {
	name := "spirv." + strings.ReplaceAll(intrinsic, ".", "_")
	if volatile {
		name += ".volatile"
	}
	return name
}

// lowerIntrinsic redirects a call of an intrinsic without a SPIR-V
// counterpart to a helper function implementing it.
func (p *pass) lowerIntrinsic(call ir.ValueID) error {
	in := p.m.Instr(call)
	if len(in.Ops) == 0 || p.m.Value(in.Ops[0]) == nil {
		return invariantf("call %%%d has no callee", call)
	}
	callee := p.m.CalledFunc(call)
	if callee == nil {
		return nil
	}
	switch callee.IntrinsicID() {
	case ir.IntrinsicMemset:
		return p.lowerMemset(call, callee)
	case ir.IntrinsicFshl:
		return p.lowerFshl(call, callee)
	case ir.IntrinsicUMulWithOverflow:
		return p.lowerUMulWithOverflow(call, callee)
	}
	return nil
}

// helper returns the function called name with signature sig and reports
// whether its body still has to be synthesized. A helper left by an earlier
// run is reused as is.
func (p *pass) helper(name string, sig types.TypeID) (*ir.Func, bool, error) {
	f, _, err := p.m.GetOrInsertFunc(name, sig)
	if err != nil {
		return nil, false, invariantf("helper: %v", err)
	}
	return f, f.IsDeclaration(), nil
}

// retarget points call at helper and records the rewrite.
func (p *pass) retarget(call ir.ValueID, from, helper *ir.Func, counter string) {
	p.m.SetCallee(call, helper)
	p.timer.Count(counter, 1)
	p.point("lower", from.Name+" -> "+helper.Name)
}

func (p *pass) wantArgs(call ir.ValueID, callee *ir.Func, n int) ([]ir.ValueID, error) {
	args := p.m.Instr(call).Args()
	if len(args) != n {
		return nil, invariantf("@%s called with %d arguments, want %d", callee.Name, len(args), n)
	}
	return args, nil
}

func (p *pass) nameParams(f *ir.Func, names ...string) {
	for i, name := range names {
		if i < len(f.Params) {
			p.m.Value(f.Params[i]).Name = name
		}
	}
}
