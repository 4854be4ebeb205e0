package regularize

import "fmt"

// removeDeadDecls drops every declaration nothing references and returns how
// many it removed.
func (p *pass) removeDeadDecls() (int, error) {
	n := 0
	for _, f := range append(p.m.Funcs[:0:0], p.m.Funcs...) {
		if !f.IsDeclaration() || f.HasUses() {
			continue
		}
		if err := p.m.RemoveFunc(f); err != nil {
			return n, fmt.Errorf("%w: %w", ErrInvariant, err)
		}
		p.point("remove_decl", f.Name)
		n++
	}
	return n, nil
}
