// Package testkit holds structural checks shared by the tests of several
// packages.
package testkit

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"spvregular/internal/ir"
)

// CheckUseLists verifies the def/use graph of m:
// 1) every use recorded on a live value points at a live instruction whose
// operand slot holds that value
// 2) every operand of a live instruction is live and lists the instruction
// among its uses
// 3) every live instruction sits in exactly one block of a function of m
func CheckUseLists(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	for i := range m.NumValues() {
		n, err := safecast.Conv[int32](i)
		if err != nil {
			return fmt.Errorf("value index overflow: %w", err)
		}
		id := ir.ValueID(n)
		v := m.Value(id)
		if v == nil {
			continue
		}
		if v.ID != id {
			return fmt.Errorf("value %%%d records id %%%d", id, v.ID)
		}
		// 1) uses point back
		for _, u := range v.Uses() {
			in := m.Instr(u.User)
			if in == nil {
				return fmt.Errorf("%%%d is used by erased or non-instruction %%%d", id, u.User)
			}
			if u.Slot < 0 || u.Slot >= len(in.Ops) || in.Ops[u.Slot] != id {
				return fmt.Errorf("%%%d: use by %%%d slot %d does not hold it", id, u.User, u.Slot)
			}
		}
		if v.Kind != ir.ValueInstr {
			continue
		}
		// 2) operands are live and registered
		for slot, op := range v.Instr.Ops {
			ov := m.Value(op)
			if ov == nil {
				return fmt.Errorf("%%%d operand %d refers to erased %%%d", id, slot, op)
			}
			if !slices.Contains(ov.Uses(), ir.Use{User: id, Slot: slot}) {
				return fmt.Errorf("%%%d operand %d: %%%d does not list the use", id, slot, op)
			}
		}
		// 3) placement
		b := v.Instr.Block
		if b == nil {
			return fmt.Errorf("%%%d is not placed in a block", id)
		}
		if c := countIn(b.Instrs, id); c != 1 {
			return fmt.Errorf("%%%d appears %d times in its block", id, c)
		}
		f := b.Func()
		if f == nil || m.Func(f.Name) != f || !slices.Contains(f.Blocks, b) {
			return fmt.Errorf("%%%d sits in a block detached from the module", id)
		}
	}
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for _, id := range b.Instrs {
				if in := m.Instr(id); in == nil || in.Block != b {
					return fmt.Errorf("@%s: block %s lists stale %%%d", f.Name, b.Name, id)
				}
			}
		}
	}
	return nil
}

func countIn(ids []ir.ValueID, id ir.ValueID) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}
