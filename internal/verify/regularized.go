package verify

import (
	"fmt"

	"spvregular/internal/diag"
	"spvregular/internal/ir"
	"spvregular/internal/spirv"
)

// Regularized reports constructs the translator cannot represent and the
// regularizer is expected to have removed.
func Regularized(m *ir.Module) *diag.Bag {
	bag := diag.NewBag(maxDiagnostics)
	if m == nil {
		return bag
	}
	for _, f := range m.Funcs {
		for _, id := range f.Instrs() {
			in := m.Instr(id)
			if in == nil {
				continue
			}
			loc := instrLoc(f, in, id)
			report := func(code diag.Code, format string, args ...any) {
				bag.Add(diag.NewError(code, loc, fmt.Sprintf(format, args...)))
			}
			switch in.Kind {
			case ir.InstrCall:
				checkRegularCall(m, in, id, report)
			case ir.InstrCmpXchg:
				report(diag.RegCmpXchgRemains, "cmpxchg must be decomposed")
			case ir.InstrBinary:
				if in.Binary.Exact {
					report(diag.RegExactFlag, "%s carries exact", in.Binary.Op)
				}
			}
			for _, kind := range spirv.DroppedMetadata {
				if _, ok := in.Metadata(kind); ok {
					report(diag.RegDroppedMetadata, "!%s attached", kind)
				}
			}
		}
	}
	return bag
}

func checkRegularCall(m *ir.Module, in *ir.Instr, id ir.ValueID, report func(diag.Code, string, ...any)) {
	if in.Call.Tail != ir.TailNone {
		report(diag.RegTailMarker, "call is marked %s", in.Call.Tail)
	}
	callee := m.CalledFunc(id)
	if callee == nil {
		return
	}
	if callee.IsIntrinsic() {
		if in.Call.Attrs.Has(ir.AttrNoUnwind) {
			report(diag.RegIntrinsicNoUnwind, "call to @%s is nounwind", callee.Name)
		}
		switch callee.IntrinsicID() {
		case ir.IntrinsicMemset:
			args := in.Args()
			if len(args) >= 3 && !(m.Value(args[1]).IsConstant() && m.Value(args[2]).IsConstInt()) {
				report(diag.RegIntrinsicRemains, "@%s with a variable value or length", callee.Name)
			}
		case ir.IntrinsicFshl, ir.IntrinsicUMulWithOverflow:
			report(diag.RegIntrinsicRemains, "@%s must be lowered", callee.Name)
		}
	}
	if _, ok := spirv.Builtins.Lookup(callee.Name); !ok {
		return
	}
	for i, a := range in.Args() {
		if !m.Types.IsFnPointer(m.TypeOf(a)) {
			continue
		}
		if arg := m.Instr(a); arg != nil && arg.Kind == ir.InstrCast {
			report(diag.RegFuncPtrCastRemains, "argument %d of @%s is a %s", i, callee.Name, arg.Cast.Op)
		}
	}
}
