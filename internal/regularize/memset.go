package regularize

import "spvregular/internal/ir"

// lowerMemset replaces a memset whose value or length is not a constant by
// a call to a helper running a byte store loop. Constant memsets translate
// directly and are kept.
func (p *pass) lowerMemset(call ir.ValueID, callee *ir.Func) error {
	args, err := p.wantArgs(call, callee, 4)
	if err != nil {
		return err
	}
	if p.m.Value(args[1]).IsConstant() && p.m.Value(args[2]).IsConstInt() {
		return nil
	}
	isVolatile := p.m.Value(args[3])
	if !isVolatile.IsConstInt() {
		return invariantf("@%s: isvolatile of call %%%d is not a constant", callee.Name, call)
	}
	volatile := isVolatile.Int() != 0

	name := helperName(callee.Name, volatile)
	helper := p.m.Func(name)
	if helper == nil {
		helper, err = p.m.DeclareFunc(name, callee.Sig)
		if err != nil {
			return invariantf("helper: %v", err)
		}
		p.buildMemset(helper, p.m.Instr(call).ArgAlign(0), volatile)
		p.timer.Count(CountHelpers, 1)
	} else if helper.Sig != callee.Sig {
		return invariantf("helper @%s has type %s, want %s", name, p.ts.String(helper.Sig), p.ts.String(callee.Sig))
	}
	p.retarget(call, callee, helper, CountMemset)
	return nil
}

// buildMemset emits
//
//	entry:         br (len == 0), split, loadstoreloop
//	loadstoreloop: i = phi [0, entry], [i+1, loadstoreloop]
//	               store val, dest[i]
//	               br (i+1 < len), loadstoreloop, split
//	split:         ret void
func (p *pass) buildMemset(f *ir.Func, align uint32, volatile bool) {
	p.nameParams(f, "dest", "val", "len", "isvolatile")
	f.ParamAttrs[0].Align = align
	f.ParamAttrs[3].ImmArg = true
	dest, val, length := f.Params[0], f.Params[1], f.Params[2]
	lenTy := p.m.TypeOf(length)

	entry := p.m.NewBlock(f, "entry")
	loop := p.m.NewBlock(f, "loadstoreloop")
	split := p.m.NewBlock(f, "split")
	b := p.b
	zero := p.m.ConstInt(lenTy, 0)

	b.SetInsertPoint(entry)
	b.CondBr(b.ICmp(ir.PredEQ, length, zero, ""), split, loop)

	b.SetInsertPoint(loop)
	idx := b.Phi(lenTy, "")
	b.AddIncoming(idx, zero, entry)
	b.Store(val, b.GEP(dest, idx, ""), ir.MemInstr{Align: 1, Volatile: volatile})
	next := b.Binary(ir.OpAdd, idx, p.m.ConstInt(lenTy, 1), "")
	b.AddIncoming(idx, next, loop)
	b.CondBr(b.ICmp(ir.PredULT, next, length, ""), loop, split)

	b.SetInsertPoint(split)
	b.RetVoid()
}
