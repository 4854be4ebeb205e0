package regularize

import (
	"slices"

	"spvregular/internal/ir"
	"spvregular/internal/spirv"
	"spvregular/internal/types"
)

// wholeValue marks a consumer that reads the { T, i1 } result as a whole.
const wholeValue = -1

type cmpxchgUser struct {
	id    ir.ValueID
	field int
}

// decomposeCmpXchg replaces a cmpxchg by a call of the SPIR-V compare
// exchange builtin, which only returns the original value. The success flag
// is recomputed as original == comparator wherever it is consumed.
func (p *pass) decomposeCmpXchg(id ir.ValueID) error {
	in := p.m.Instr(id)
	if len(in.Ops) != 3 {
		return invariantf("cmpxchg %%%d has %d operands", id, len(in.Ops))
	}
	ptr, cmp, newVal := in.Ops[0], in.Ops[1], in.Ops[2]

	var users []cmpxchgUser
	for _, u := range p.m.Value(id).Users() {
		ui := p.m.Instr(u)
		switch ui.Kind {
		case ir.InstrExtractValue:
			idx := ui.Field.Indices
			if len(idx) != 1 || idx[0] > 1 {
				return invariantf("cmpxchg %%%d read at index path %v by %%%d", id, idx, u)
			}
			users = append(users, cmpxchgUser{id: u, field: int(idx[0])})
		default:
			users = append(users, cmpxchgUser{id: u, field: wholeValue})
		}
	}

	builtin, err := p.cmpxchgBuiltin(p.m.TypeOf(ptr), p.m.TypeOf(cmp))
	if err != nil {
		return err
	}
	i32 := p.ts.Builtins().I32
	b := p.b
	b.SetInsertBefore(id)
	res := b.Call(builtin, []ir.ValueID{
		ptr,
		p.m.ConstInt(i32, uint64(spirv.ScopeDevice)),
		p.m.ConstInt(i32, uint64(spirv.SemanticsFor(in.CmpXchg.Success))),
		p.m.ConstInt(i32, uint64(spirv.SemanticsFor(in.CmpXchg.Failure))),
		newVal,
		cmp,
	}, "cmpxchg.res")

	// one rebuilt { T, i1 } right after the call dominates every whole-value
	// user, phi incoming edges included
	agg := ir.NoValueID
	if slices.ContainsFunc(users, func(u cmpxchgUser) bool { return u.field == wholeValue }) {
		eq := b.ICmp(ir.PredEQ, res, cmp, "cmpxchg.success")
		agg = b.InsertValue(p.m.Undef(p.m.TypeOf(id)), res, 0, "agg0")
		agg = b.InsertValue(agg, eq, 1, "agg1")
	}

	for _, u := range users {
		switch u.field {
		case 0:
			p.m.ReplaceAllUsesWith(u.id, res)
			p.toErase = append(p.toErase, u.id)
		case 1:
			b.SetInsertBefore(u.id)
			p.m.ReplaceAllUsesWith(u.id, b.ICmp(ir.PredEQ, res, cmp, "cmpxchg.success"))
			p.toErase = append(p.toErase, u.id)
		default:
			for slot, op := range p.m.Instr(u.id).Ops {
				if op == id {
					p.m.SetOperand(u.id, slot, agg)
				}
			}
		}
	}
	p.toErase = append(p.toErase, id)
	p.timer.Count(CountCmpXchg, 1)
	p.point("cmpxchg", builtin.Name)
	return nil
}

// cmpxchgBuiltin declares __spirv_AtomicCompareExchange_<T> for value type
// T, returning T. Pointers into other address spaces get numbered variants.
func (p *pass) cmpxchgBuiltin(ptr, ty types.TypeID) (*ir.Func, error) {
	i32 := p.ts.Builtins().I32
	name := spirv.Builtins.Symbol(spirv.OpAtomicCompareExchange) + "_" + p.ts.Mangle(ty)
	sig := p.ts.RegisterFn([]types.TypeID{ptr, i32, i32, i32, ty, ty}, ty)
	f, _, err := p.declareVariant(name, sig)
	if err != nil {
		return nil, invariantf("cmpxchg builtin: %v", err)
	}
	return f, nil
}
