package ir

import (
	"fmt"
	"slices"

	"spvregular/internal/types"
)

// Builder creates instructions at an insertion point: either the end of a
// block or right before an existing instruction.
type Builder struct {
	m      *Module
	block  *Block
	before ValueID
}

// NewBuilder returns a builder without an insertion point.
func NewBuilder(m *Module) *Builder {
	return &Builder{m: m, before: NoValueID}
}

// Module returns the module the builder writes to.
func (b *Builder) Module() *Module { return b.m }

// SetInsertPoint makes new instructions append to blk.
func (b *Builder) SetInsertPoint(blk *Block) {
	b.block = blk
	b.before = NoValueID
}

// SetInsertBefore makes new instructions go right before id.
func (b *Builder) SetInsertBefore(id ValueID) {
	in := b.m.Instr(id)
	if in == nil || in.Block == nil {
		panic(fmt.Errorf("ir: insert point %%%d is not a placed instruction", id))
	}
	b.block = in.Block
	b.before = id
}

// Insert places a fully formed instruction of type ty and registers its
// operand uses. Operands equal to NoValueID are left for SetOperand.
func (b *Builder) Insert(in *Instr, ty types.TypeID, name string) ValueID {
	if b.block == nil {
		panic("ir: builder has no insertion point")
	}
	in.Block = b.block
	id := b.m.newValue(&Value{Kind: ValueInstr, Type: ty, Name: name, Instr: in})
	if b.before == NoValueID {
		b.block.Instrs = append(b.block.Instrs, id)
	} else {
		idx := slices.Index(b.block.Instrs, b.before)
		if idx < 0 {
			panic(fmt.Errorf("ir: insert point %%%d left its block", b.before))
		}
		b.block.Instrs = slices.Insert(b.block.Instrs, idx, id)
	}
	for slot, op := range in.Ops {
		if v := b.m.Value(op); v != nil {
			v.addUse(Use{User: id, Slot: slot})
		}
	}
	return id
}

func (b *Builder) typeOf(id ValueID) types.TypeID {
	ty := b.m.TypeOf(id)
	if ty == types.NoTypeID {
		panic(fmt.Errorf("ir: operand %%%d has no type", id))
	}
	return ty
}

// Binary creates `l op r`.
func (b *Builder) Binary(op BinaryOp, l, r ValueID, name string) ValueID {
	return b.Insert(&Instr{Kind: InstrBinary, Ops: []ValueID{l, r}, Binary: BinaryInstr{Op: op}}, b.typeOf(l), name)
}

// ICmp creates an integer comparison yielding i1 per lane.
func (b *Builder) ICmp(pred ICmpPred, l, r ValueID, name string) ValueID {
	ty := b.m.Types.WithScalar(b.typeOf(l), b.m.Types.Builtins().I1)
	return b.Insert(&Instr{Kind: InstrICmp, Ops: []ValueID{l, r}, ICmp: ICmpInstr{Pred: pred}}, ty, name)
}

// Select creates `cond ? t : f`.
func (b *Builder) Select(cond, t, f ValueID, name string) ValueID {
	return b.Insert(&Instr{Kind: InstrSelect, Ops: []ValueID{cond, t, f}}, b.typeOf(t), name)
}

// Cast converts v to ty.
func (b *Builder) Cast(op CastOp, v ValueID, ty types.TypeID, name string) ValueID {
	return b.Insert(&Instr{Kind: InstrCast, Ops: []ValueID{v}, Cast: CastInstr{Op: op}}, ty, name)
}

// Call creates a direct call to f.
func (b *Builder) Call(f *Func, args []ValueID, name string) ValueID {
	if n := len(f.ParamTypes()); n != len(args) {
		panic(fmt.Errorf("ir: call @%s with %d args, want %d", f.Name, len(args), n))
	}
	return b.CallValue(f.Ref(), f.Sig, args, name)
}

// CallValue creates a call through an arbitrary callee value of function type sig.
func (b *Builder) CallValue(callee ValueID, sig types.TypeID, args []ValueID, name string) ValueID {
	info, ok := b.m.Types.FnInfo(sig)
	if !ok {
		panic(fmt.Errorf("ir: call through non-function type %s", b.m.Types.String(sig)))
	}
	ops := append([]ValueID{callee}, args...)
	return b.Insert(&Instr{Kind: InstrCall, Ops: ops}, info.Result, name)
}

// ExtractValue reads field idx of an aggregate.
func (b *Builder) ExtractValue(agg ValueID, idx uint32, name string) ValueID {
	ty := b.m.Types.FieldType(b.typeOf(agg), idx)
	if ty == types.NoTypeID {
		panic(fmt.Errorf("ir: extractvalue %d from %s", idx, b.m.Types.String(b.typeOf(agg))))
	}
	return b.Insert(&Instr{Kind: InstrExtractValue, Ops: []ValueID{agg}, Field: FieldInstr{Indices: []uint32{idx}}}, ty, name)
}

// InsertValue writes v into field idx of agg.
func (b *Builder) InsertValue(agg, v ValueID, idx uint32, name string) ValueID {
	return b.Insert(&Instr{Kind: InstrInsertValue, Ops: []ValueID{agg, v}, Field: FieldInstr{Indices: []uint32{idx}}}, b.typeOf(agg), name)
}

// Load reads a ty from ptr.
func (b *Builder) Load(ty types.TypeID, ptr ValueID, mem MemInstr, name string) ValueID {
	return b.Insert(&Instr{Kind: InstrLoad, Ops: []ValueID{ptr}, Mem: mem}, ty, name)
}

// Store writes v to ptr.
func (b *Builder) Store(v, ptr ValueID, mem MemInstr) ValueID {
	return b.Insert(&Instr{Kind: InstrStore, Ops: []ValueID{v, ptr}, Mem: mem}, b.m.Types.Builtins().Void, "")
}

// GEP offsets ptr by idx pointee-sized elements.
func (b *Builder) GEP(ptr, idx ValueID, name string) ValueID {
	return b.Insert(&Instr{Kind: InstrGEP, Ops: []ValueID{ptr, idx}}, b.typeOf(ptr), name)
}

// CmpXchg creates an atomic compare-exchange returning { T, i1 }.
func (b *Builder) CmpXchg(ptr, cmp, newVal ValueID, success, failure Ordering, name string) ValueID {
	ty := b.m.Types.RegisterStruct([]types.TypeID{b.typeOf(cmp), b.m.Types.Builtins().I1})
	in := &Instr{
		Kind:    InstrCmpXchg,
		Ops:     []ValueID{ptr, cmp, newVal},
		CmpXchg: CmpXchgInstr{Success: success, Failure: failure},
	}
	return b.Insert(in, ty, name)
}

// Phi creates an empty phi of type ty.
func (b *Builder) Phi(ty types.TypeID, name string) ValueID {
	return b.Insert(&Instr{Kind: InstrPhi}, ty, name)
}

// AddIncoming appends an incoming (value, predecessor) pair to a phi.
func (b *Builder) AddIncoming(phi, v ValueID, from *Block) {
	in := b.m.Instr(phi)
	if in == nil || in.Kind != InstrPhi {
		panic(fmt.Errorf("ir: %%%d is not a phi", phi))
	}
	slot := len(in.Ops)
	in.Ops = append(in.Ops, v)
	in.Phi.Blocks = append(in.Phi.Blocks, from)
	if val := b.m.Value(v); val != nil {
		val.addUse(Use{User: phi, Slot: slot})
	}
}

// Br creates an unconditional branch.
func (b *Builder) Br(target *Block) ValueID {
	return b.Insert(&Instr{Kind: InstrBr, Br: BrInstr{Targets: []*Block{target}}}, b.m.Types.Builtins().Void, "")
}

// CondBr branches to then when cond is true and to els otherwise.
func (b *Builder) CondBr(cond ValueID, then, els *Block) ValueID {
	in := &Instr{Kind: InstrCondBr, Ops: []ValueID{cond}, Br: BrInstr{Targets: []*Block{then, els}}}
	return b.Insert(in, b.m.Types.Builtins().Void, "")
}

// Ret returns v.
func (b *Builder) Ret(v ValueID) ValueID {
	return b.Insert(&Instr{Kind: InstrRet, Ops: []ValueID{v}}, b.m.Types.Builtins().Void, "")
}

// RetVoid returns nothing.
func (b *Builder) RetVoid() ValueID {
	return b.Insert(&Instr{Kind: InstrRet}, b.m.Types.Builtins().Void, "")
}

// Unreachable terminates a block that cannot be reached.
func (b *Builder) Unreachable() ValueID {
	return b.Insert(&Instr{Kind: InstrUnreachable}, b.m.Types.Builtins().Void, "")
}
