package ir

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrHasUses is returned when erasing a value that is still referenced.
	ErrHasUses = errors.New("value still has uses")
	// ErrNotInstr is returned when an operation needs an instruction.
	ErrNotInstr = errors.New("value is not an instruction")
)

// SetOperand makes operand slot of user refer to v, keeping both use-lists
// consistent. Setting the operand it already holds is a no-op.
func (m *Module) SetOperand(user ValueID, slot int, v ValueID) {
	in := m.Instr(user)
	if in == nil || slot < 0 || slot >= len(in.Ops) {
		panic(fmt.Errorf("ir: bad operand %d of %%%d", slot, user))
	}
	old := in.Ops[slot]
	if old == v {
		return
	}
	u := Use{User: user, Slot: slot}
	if ov := m.Value(old); ov != nil {
		ov.removeUse(u)
	}
	in.Ops[slot] = v
	if nv := m.Value(v); nv != nil {
		nv.addUse(u)
	}
}

// ReplaceAllUsesWith redirects every use of old to repl.
func (m *Module) ReplaceAllUsesWith(old, repl ValueID) {
	if old == repl {
		return
	}
	for _, u := range m.Value(old).Uses() {
		m.SetOperand(u.User, u.Slot, repl)
	}
}

// SetCallee retargets a call to f.
func (m *Module) SetCallee(call ValueID, f *Func) {
	m.SetOperand(call, 0, f.Ref())
}

// Erase removes an instruction from its block and the arena. The
// instruction must have an empty use-list; this is checked.
func (m *Module) Erase(id ValueID) error {
	v := m.Value(id)
	if v == nil || v.Kind != ValueInstr {
		return fmt.Errorf("erase %%%d: %w", id, ErrNotInstr)
	}
	if v.HasUses() {
		return fmt.Errorf("erase %%%d: %w (%d)", id, ErrHasUses, v.NumUses())
	}
	in := v.Instr
	if b := in.Block; b != nil {
		if idx := slices.Index(b.Instrs, id); idx >= 0 {
			b.Instrs = slices.Delete(b.Instrs, idx, idx+1)
		}
	}
	m.dropOperands(id)
	in.Block = nil
	m.values[id] = nil
	return nil
}

// EraseIfUnused erases id when it is an instruction without uses and reports
// whether it did.
func (m *Module) EraseIfUnused(id ValueID) bool {
	v := m.Value(id)
	if v == nil || v.Kind != ValueInstr || v.HasUses() {
		return false
	}
	return m.Erase(id) == nil
}

func (m *Module) dropOperands(id ValueID) {
	in := m.Instr(id)
	for slot, op := range in.Ops {
		if ov := m.Value(op); ov != nil {
			ov.removeUse(Use{User: id, Slot: slot})
		}
	}
}

// RemoveFunc deletes f from the module. f must be unreferenced. A body is
// dropped along with it.
func (m *Module) RemoveFunc(f *Func) error {
	if f.HasUses() {
		return fmt.Errorf("remove @%s: %w", f.Name, ErrHasUses)
	}
	all := f.Instrs()
	for _, id := range all {
		for _, u := range m.Value(id).uses {
			if in := m.Instr(u.User); in == nil || in.Block == nil || in.Block.fn != f {
				return fmt.Errorf("remove @%s: instruction %%%d: %w", f.Name, id, ErrHasUses)
			}
		}
	}
	for _, param := range f.Params {
		for _, u := range m.Value(param).uses {
			if in := m.Instr(u.User); in == nil || in.Block == nil || in.Block.fn != f {
				return fmt.Errorf("remove @%s: parameter %%%d: %w", f.Name, param, ErrHasUses)
			}
		}
	}
	for _, id := range all {
		m.dropOperands(id)
		m.Instr(id).Ops = nil
	}
	for _, id := range all {
		m.values[id] = nil
	}
	for _, p := range f.Params {
		m.values[p] = nil
	}
	m.values[f.ref] = nil
	f.Blocks = nil
	if idx := slices.Index(m.Funcs, f); idx >= 0 {
		m.Funcs = slices.Delete(m.Funcs, idx, idx+1)
	}
	delete(m.byName, f.Name)
	return nil
}
