package regularize

import (
	"spvregular/internal/ir"
	"spvregular/internal/spirv"
)

// sanitize clears what the target cannot express: tail markers on calls,
// nounwind on intrinsic calls, the exact flag and some metadata kinds.
func (p *pass) sanitize(id ir.ValueID, in *ir.Instr) {
	changed := false
	switch in.Kind {
	case ir.InstrCall:
		if in.Call.Tail != ir.TailNone {
			in.Call.Tail = ir.TailNone
			changed = true
		}
		if callee := p.m.CalledFunc(id); callee.IsIntrinsic() && in.Call.Attrs.Has(ir.AttrNoUnwind) {
			in.Call.Attrs &^= ir.AttrNoUnwind
			changed = true
		}
	case ir.InstrBinary:
		if in.Binary.Op.PossiblyExact() && in.Binary.Exact {
			in.Binary.Exact = false
			changed = true
		}
	}
	for _, kind := range spirv.DroppedMetadata {
		if in.RemoveMetadata(kind) {
			changed = true
		}
	}
	if changed {
		p.timer.Count(CountSanitized, 1)
		p.point("sanitize", in.Kind.String())
	}
}
