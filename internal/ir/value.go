package ir

import (
	"slices"

	"spvregular/internal/types"
)

// Use records that User holds a value as operand number Slot.
type Use struct {
	User ValueID
	Slot int
}

// Value is a node of the module's value arena.
type Value struct {
	ID   ValueID
	Kind ValueKind
	Type types.TypeID
	Name string

	// Lanes holds the bits of a constant, one entry per vector lane.
	Lanes []uint64
	// Arg is the parameter index of a ValueArg.
	Arg int
	// Func is the referenced function of a ValueFunc or the owner of a ValueArg.
	Func *Func
	// Instr is the payload of a ValueInstr.
	Instr *Instr

	uses []Use
}

// Uses returns a snapshot of the use-list. Mutating the graph while ranging
// over it is safe.
func (v *Value) Uses() []Use {
	if v == nil {
		return nil
	}
	return slices.Clone(v.uses)
}

// NumUses returns the length of the use-list.
func (v *Value) NumUses() int {
	if v == nil {
		return 0
	}
	return len(v.uses)
}

// HasUses reports whether any instruction holds v as an operand.
func (v *Value) HasUses() bool {
	return v.NumUses() > 0
}

// Users returns the distinct users of v in use-list order.
func (v *Value) Users() []ValueID {
	if v == nil {
		return nil
	}
	out := make([]ValueID, 0, len(v.uses))
	for _, u := range v.uses {
		if !slices.Contains(out, u.User) {
			out = append(out, u.User)
		}
	}
	return out
}

// IsConstant reports whether v is a compile-time constant.
func (v *Value) IsConstant() bool {
	return v != nil && (v.Kind == ValueConst || v.Kind == ValueUndef)
}

// IsConstInt reports whether v is a scalar integer constant.
func (v *Value) IsConstInt() bool {
	return v != nil && v.Kind == ValueConst && len(v.Lanes) == 1
}

// Int returns the bits of a scalar constant.
func (v *Value) Int() uint64 {
	if v == nil || len(v.Lanes) == 0 {
		return 0
	}
	return v.Lanes[0]
}

func (v *Value) addUse(u Use) {
	v.uses = append(v.uses, u)
}

func (v *Value) removeUse(u Use) bool {
	idx := slices.Index(v.uses, u)
	if idx < 0 {
		return false
	}
	v.uses = slices.Delete(v.uses, idx, idx+1)
	return true
}
