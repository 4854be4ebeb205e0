package ir

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"

	"spvregular/internal/types"
)

// Module owns every function, block and value of one program.
// It is not safe for concurrent use.
type Module struct {
	Name  string
	Types *types.Interner
	Funcs []*Func

	values []*Value
	byName map[string]*Func
	consts map[constKey]ValueID
	undefs map[types.TypeID]ValueID
}

type constKey struct {
	Type  types.TypeID
	Lanes string
}

// Func is a function definition or a bodiless declaration.
type Func struct {
	Name       string
	Sig        types.TypeID
	Params     []ValueID
	Attrs      Attr
	ParamAttrs []ParamAttrs
	Blocks     []*Block

	ref ValueID
	mod *Module
}

// Block is a basic block owned by exactly one function.
type Block struct {
	Name   string
	Instrs []ValueID

	fn *Func
}

// NewModule creates an empty module. A nil interner gets a fresh one.
func NewModule(name string, typesIn *types.Interner) *Module {
	if typesIn == nil {
		typesIn = types.NewInterner()
	}
	return &Module{
		Name:   name,
		Types:  typesIn,
		byName: make(map[string]*Func),
		consts: make(map[constKey]ValueID),
		undefs: make(map[types.TypeID]ValueID),
	}
}

// Value returns the live node for id, or nil when id is unknown or erased.
func (m *Module) Value(id ValueID) *Value {
	if id < 0 || int(id) >= len(m.values) {
		return nil
	}
	return m.values[id]
}

// Instr returns the instruction payload of id, or nil.
func (m *Module) Instr(id ValueID) *Instr {
	v := m.Value(id)
	if v == nil || v.Kind != ValueInstr {
		return nil
	}
	return v.Instr
}

// TypeOf returns the type of a value.
func (m *Module) TypeOf(id ValueID) types.TypeID {
	v := m.Value(id)
	if v == nil {
		return types.NoTypeID
	}
	return v.Type
}

// NumValues returns the arena size, erased slots included.
func (m *Module) NumValues() int {
	return len(m.values)
}

func (m *Module) newValue(v *Value) ValueID {
	n, err := safecast.Conv[int32](len(m.values))
	if err != nil {
		panic(fmt.Errorf("value arena overflow: %w", err))
	}
	v.ID = ValueID(n)
	m.values = append(m.values, v)
	return v.ID
}

// Func returns the function with the given symbol name, or nil.
// The name table doubles as the cache of synthesized helpers.
func (m *Module) Func(name string) *Func {
	return m.byName[name]
}

// DeclareFunc adds a bodiless function. The name must be free.
func (m *Module) DeclareFunc(name string, sig types.TypeID) (*Func, error) {
	if _, exists := m.byName[name]; exists {
		return nil, fmt.Errorf("function @%s already exists", name)
	}
	info, ok := m.Types.FnInfo(sig)
	if !ok {
		return nil, fmt.Errorf("function @%s: %s is not a function type", name, m.Types.String(sig))
	}
	f := &Func{
		Name:       name,
		Sig:        sig,
		ParamAttrs: make([]ParamAttrs, len(info.Params)),
		mod:        m,
	}
	f.ref = m.newValue(&Value{Kind: ValueFunc, Type: m.Types.Pointer(sig), Name: name, Func: f})
	for i, pt := range info.Params {
		f.Params = append(f.Params, m.newValue(&Value{Kind: ValueArg, Type: pt, Arg: i, Func: f}))
	}
	m.Funcs = append(m.Funcs, f)
	m.byName[name] = f
	return f, nil
}

// GetOrInsertFunc returns the function named name, declaring it with sig
// when absent. An existing function with another signature is an error.
func (m *Module) GetOrInsertFunc(name string, sig types.TypeID) (f *Func, created bool, err error) {
	if f = m.byName[name]; f != nil {
		if f.Sig != sig {
			return nil, false, fmt.Errorf("function @%s has type %s, wanted %s",
				name, m.Types.String(f.Sig), m.Types.String(sig))
		}
		return f, false, nil
	}
	f, err = m.DeclareFunc(name, sig)
	return f, err == nil, err
}

// NewBlock appends an empty block to f.
func (m *Module) NewBlock(f *Func, name string) *Block {
	b := &Block{Name: name, fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// ConstInt returns the uniqued constant of type ty with every lane set to v.
// The bits are truncated to the lane width.
func (m *Module) ConstInt(ty types.TypeID, v uint64) ValueID {
	lanes := make([]uint64, m.Types.Lanes(ty))
	for i := range lanes {
		lanes[i] = v
	}
	return m.ConstLanes(ty, lanes)
}

// ConstLanes returns the uniqued constant with per-lane bits.
func (m *Module) ConstLanes(ty types.TypeID, lanes []uint64) ValueID {
	width, ok := m.Types.ScalarWidth(ty)
	if !ok {
		panic(fmt.Errorf("ir: constant of non-integer type %s", m.Types.String(ty)))
	}
	if uint32(len(lanes)) != m.Types.Lanes(ty) {
		panic(fmt.Errorf("ir: %d lanes for %s", len(lanes), m.Types.String(ty)))
	}
	masked := make([]uint64, len(lanes))
	var sb strings.Builder
	for i, l := range lanes {
		masked[i] = l & Mask(width)
		fmt.Fprintf(&sb, "%x,", masked[i])
	}
	key := constKey{Type: ty, Lanes: sb.String()}
	if id, ok := m.consts[key]; ok {
		return id
	}
	id := m.newValue(&Value{Kind: ValueConst, Type: ty, Lanes: masked})
	m.consts[key] = id
	return id
}

// Undef returns the uniqued undefined value of type ty.
func (m *Module) Undef(ty types.TypeID) ValueID {
	if id, ok := m.undefs[ty]; ok {
		return id
	}
	id := m.newValue(&Value{Kind: ValueUndef, Type: ty})
	m.undefs[ty] = id
	return id
}

// Mask returns the all-ones pattern of the given bit width.
func Mask(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// Module returns the owning module.
func (f *Func) Module() *Module { return f.mod }

// Ref returns the value referencing f.
func (f *Func) Ref() ValueID { return f.ref }

// IsDeclaration reports whether f has no body.
func (f *Func) IsDeclaration() bool { return len(f.Blocks) == 0 }

// Uses returns the use-list of f's reference value.
func (f *Func) Uses() []Use { return f.mod.Value(f.ref).Uses() }

// HasUses reports whether anything references f.
func (f *Func) HasUses() bool { return f.mod.Value(f.ref).HasUses() }

// Result returns the return type of f.
func (f *Func) Result() types.TypeID {
	info, ok := f.mod.Types.FnInfo(f.Sig)
	if !ok {
		return types.NoTypeID
	}
	return info.Result
}

// ParamTypes returns the parameter types of f.
func (f *Func) ParamTypes() []types.TypeID {
	info, ok := f.mod.Types.FnInfo(f.Sig)
	if !ok {
		return nil
	}
	return info.Params
}

// Instrs returns a snapshot of every instruction of f in layout order.
func (f *Func) Instrs() []ValueID {
	var out []ValueID
	for _, b := range f.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

// Func returns the owning function.
func (b *Block) Func() *Func { return b.fn }

// Index returns the position of b within its function, or -1.
func (b *Block) Index() int {
	if b == nil || b.fn == nil {
		return -1
	}
	return slices.Index(b.fn.Blocks, b)
}

// IntrinsicName returns the callee name of an intrinsic call, or "".
func (m *Module) IntrinsicName(call ValueID) string {
	if f := m.CalledFunc(call); f != nil && f.IsIntrinsic() {
		return f.Name
	}
	return ""
}

// CalledFunc returns the direct callee of a call, or nil.
func (m *Module) CalledFunc(call ValueID) *Func {
	in := m.Instr(call)
	if in == nil || in.Kind != InstrCall || len(in.Ops) == 0 {
		return nil
	}
	callee := m.Value(in.Ops[0])
	if callee == nil || callee.Kind != ValueFunc {
		return nil
	}
	return callee.Func
}
