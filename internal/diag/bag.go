package diag

import (
	"errors"
	"slices"
	"strings"
)

// Bag collects diagnostics up to a limit.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag holding at most max diagnostics. max <= 0 means
// unlimited.
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends d unless the limit is reached.
// It returns false when the diagnostic was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Cap returns the configured limit.
func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic is at least a warning.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the internal slice. Callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends the diagnostics of other, growing the limit if needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); b.max > 0 && total > b.max {
		b.max = total
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by function, block, value, severity (desc) and code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(di, dj Diagnostic) int {
		if c := strings.Compare(di.Primary.Func, dj.Primary.Func); c != 0 {
			return c
		}
		if c := strings.Compare(di.Primary.Block, dj.Primary.Block); c != 0 {
			return c
		}
		if di.Primary.Value != dj.Primary.Value {
			return int(di.Primary.Value) - int(dj.Primary.Value)
		}
		if di.Severity != dj.Severity {
			return int(dj.Severity) - int(di.Severity)
		}
		return int(di.Code) - int(dj.Code)
	})
}

// Dedup drops repeated diagnostics with the same code, location and message.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		loc  Location
		msg  string
	}
	seen := make(map[key]struct{}, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		k := key{d.Code, d.Primary, d.Message}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

// Err joins the error diagnostics into one error, or returns nil.
func (b *Bag) Err() error {
	var errs []error
	for _, d := range b.items {
		if d.Severity >= SevError {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}
