package regularize

import (
	"fmt"
	"slices"
	"strconv"

	"spvregular/internal/ir"
	"spvregular/internal/spirv"
	"spvregular/internal/types"
)

// funcPtrBuiltin is a builtin declaration taking function pointers.
type funcPtrBuiltin struct {
	f  *ir.Func
	op spirv.Op
}

// normalizeFuncPtrs rewrites calls of builtins with function pointer
// parameters so that they receive functions directly and target the
// canonical builtin symbol. It returns the number of rewritten calls.
func (p *pass) normalizeFuncPtrs() (int, error) {
	var work []funcPtrBuiltin
	for _, f := range p.m.Funcs {
		if !slices.ContainsFunc(f.ParamTypes(), p.ts.IsFnPointer) {
			continue
		}
		op, ok := spirv.Builtins.Lookup(f.Name)
		if !ok || op == spirv.OpNop {
			continue
		}
		work = append(work, funcPtrBuiltin{f: f, op: op})
	}

	var casts []ir.ValueID
	calls := 0
	for _, w := range work {
		for _, u := range w.f.Uses() {
			in := p.m.Instr(u.User)
			if u.Slot != 0 || in == nil || in.Kind != ir.InstrCall {
				continue
			}
			unwrapped, changed, err := p.rewriteFuncPtrCall(u.User, w)
			if err != nil {
				return calls, fmt.Errorf("call %%%d of @%s: %w", u.User, w.f.Name, err)
			}
			casts = append(casts, unwrapped...)
			if changed {
				calls++
			}
		}
	}

	erased := 0
	for _, id := range casts {
		if p.m.EraseIfUnused(id) {
			erased++
		}
	}
	p.timer.Count(CountFuncPtrCalls, calls)
	p.timer.Count(CountErasedFuncCast, erased)
	return calls, nil
}

// rewriteFuncPtrCall retargets one call. It returns the casts it stripped,
// outermost first.
func (p *pass) rewriteFuncPtrCall(call ir.ValueID, w funcPtrBuiltin) ([]ir.ValueID, bool, error) {
	args := slices.Clone(p.m.Instr(call).Args())
	var casts []ir.ValueID
	for i, a := range args {
		if !p.ts.IsFnPointer(p.m.TypeOf(a)) {
			continue
		}
		fn, stripped, err := p.unwrapFuncPtr(a)
		if err != nil {
			return nil, false, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = fn.Ref()
		casts = append(casts, stripped...)
	}
	name := spirv.Builtins.Symbol(w.op)
	// numbered variants already carry the canonical symbol
	if len(casts) == 0 && spirv.TrimVariant(w.f.Name) == name {
		return nil, false, nil
	}

	params := make([]types.TypeID, len(args))
	for i, a := range args {
		params[i] = p.m.TypeOf(a)
	}
	target, created, err := p.declareVariant(name, p.ts.RegisterFn(params, w.f.Result()))
	if err != nil {
		return nil, false, invariantf("declare %s: %v", name, err)
	}
	if created {
		target.Attrs = w.f.Attrs
	}
	for i, a := range args {
		p.m.SetOperand(call, i+1, a)
	}
	p.m.SetCallee(call, target)
	p.point("funcptr_call", w.f.Name+" -> "+target.Name)
	return casts, true, nil
}

// unwrapFuncPtr resolves a function pointer argument to the function it
// denotes, looking through bitcasts and address space casts.
func (p *pass) unwrapFuncPtr(id ir.ValueID) (*ir.Func, []ir.ValueID, error) {
	var casts []ir.ValueID
	for {
		v := p.m.Value(id)
		switch {
		case v == nil:
			return nil, nil, invariantf("erased function pointer %%%d", id)
		case v.Kind == ir.ValueFunc:
			return v.Func, casts, nil
		case v.Kind == ir.ValueInstr && v.Instr.Kind == ir.InstrCast &&
			(v.Instr.Cast.Op == ir.CastBitcast || v.Instr.Cast.Op == ir.CastAddrSpace):
			casts = append(casts, id)
			id = v.Instr.Ops[0]
		default:
			return nil, nil, fmt.Errorf("%w: %%%d is a %s", ErrUnsupportedFuncPtr, id, describe(v))
		}
	}
}

func describe(v *ir.Value) string {
	if v.Kind == ir.ValueInstr {
		return v.Instr.Kind.String()
	}
	return v.Kind.String()
}

// declareVariant finds or declares a function called name with signature
// sig. When name is taken by another signature, numbered variants name.1,
// name.2 and so on are tried in order.
func (p *pass) declareVariant(name string, sig types.TypeID) (*ir.Func, bool, error) {
	for i := 0; ; i++ {
		cand := name
		if i > 0 {
			cand = name + "." + strconv.Itoa(i)
		}
		f := p.m.Func(cand)
		if f == nil {
			f, err := p.m.DeclareFunc(cand, sig)
			return f, err == nil, err
		}
		if f.Sig == sig {
			return f, false, nil
		}
	}
}
