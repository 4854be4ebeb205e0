package ir

import "slices"

// Instr is the payload of an instruction value.
type Instr struct {
	Kind  InstrKind
	Block *Block
	Ops   []ValueID

	Binary  BinaryInstr
	ICmp    ICmpInstr
	Cast    CastInstr
	Call    CallInstr
	Field   FieldInstr
	Mem     MemInstr
	CmpXchg CmpXchgInstr
	Phi     PhiInstr
	Br      BrInstr

	MD []MDAttachment
}

// BinaryInstr carries the operator and its flags.
type BinaryInstr struct {
	Op    BinaryOp
	Exact bool
	NUW   bool
	NSW   bool
}

// ICmpInstr carries the comparison predicate.
type ICmpInstr struct {
	Pred ICmpPred
}

// CastInstr carries the conversion kind.
type CastInstr struct {
	Op CastOp
}

// CallInstr carries call-site properties. Ops[0] is the callee, the
// arguments follow.
type CallInstr struct {
	Tail  TailKind
	Attrs Attr
	// ArgAlign is the alignment attribute of each argument, 0 meaning none.
	ArgAlign []uint32
}

// FieldInstr carries the index path of extractvalue/insertvalue.
type FieldInstr struct {
	Indices []uint32
}

// MemInstr carries memory access properties of load, store and cmpxchg.
type MemInstr struct {
	Align    uint32
	Volatile bool
}

// CmpXchgInstr carries orderings of a compare-exchange.
// Ops are (pointer, comparator, new value).
type CmpXchgInstr struct {
	Success Ordering
	Failure Ordering
	Weak    bool
}

// PhiInstr lists the predecessor of each incoming operand.
type PhiInstr struct {
	Blocks []*Block
}

// BrInstr lists branch targets. A conditional branch has (then, else).
type BrInstr struct {
	Targets []*Block
}

// MDAttachment is one metadata kind attached to an instruction.
type MDAttachment struct {
	Kind  string
	Value string
}

// Metadata returns the attachment of the given kind.
func (in *Instr) Metadata(kind string) (string, bool) {
	for _, md := range in.MD {
		if md.Kind == kind {
			return md.Value, true
		}
	}
	return "", false
}

// SetMetadata attaches or replaces metadata of the given kind.
func (in *Instr) SetMetadata(kind, value string) {
	for i := range in.MD {
		if in.MD[i].Kind == kind {
			in.MD[i].Value = value
			return
		}
	}
	in.MD = append(in.MD, MDAttachment{Kind: kind, Value: value})
}

// RemoveMetadata drops the attachment of the given kind and reports whether
// it was present.
func (in *Instr) RemoveMetadata(kind string) bool {
	idx := slices.IndexFunc(in.MD, func(md MDAttachment) bool { return md.Kind == kind })
	if idx < 0 {
		return false
	}
	in.MD = slices.Delete(in.MD, idx, idx+1)
	if len(in.MD) == 0 {
		in.MD = nil
	}
	return true
}

// Args returns the argument operands of a call.
func (in *Instr) Args() []ValueID {
	if in.Kind != InstrCall || len(in.Ops) == 0 {
		return nil
	}
	return in.Ops[1:]
}

// ArgAlign returns the alignment attribute of call argument i.
func (in *Instr) ArgAlign(i int) uint32 {
	if i < 0 || i >= len(in.Call.ArgAlign) {
		return 0
	}
	return in.Call.ArgAlign[i]
}
