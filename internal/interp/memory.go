package interp

// Memory is a cell-addressed store: every address holds one whole Value, and
// a GEP by one element moves to the next cell whatever the element size.
type Memory struct {
	cells map[uint64]Value
	next  uint64
}

// firstAddr keeps address 0 free as the null pointer.
const firstAddr = 0x1000

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{cells: make(map[uint64]Value), next: firstAddr}
}

// Alloc reserves n cells and returns the first address. Consecutive
// allocations are separated by an unmapped cell, so running past the end
// reads an uninitialized cell.
func (m *Memory) Alloc(n int) uint64 {
	base := m.next
	m.next += uint64(n) + 1
	return base
}

// Load returns the value stored at addr.
func (m *Memory) Load(addr uint64) (Value, bool) {
	v, ok := m.cells[addr]
	return v, ok
}

// Store writes v at addr.
func (m *Memory) Store(addr uint64, v Value) {
	m.cells[addr] = v
}

// Written reports how many cells hold a value.
func (m *Memory) Written() int {
	return len(m.cells)
}
