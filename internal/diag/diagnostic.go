package diag

import (
	"fmt"
	"strings"

	"spvregular/internal/ir"
)

// Location points at a function, a block in it and optionally one value.
// Empty fields are omitted when printed.
type Location struct {
	Func  string
	Block string
	Value ir.ValueID
}

// NoLocation is the zero location of module-level findings.
var NoLocation = Location{Value: ir.NoValueID}

// At returns the location of a function.
func At(fn string) Location {
	return Location{Func: fn, Value: ir.NoValueID}
}

// AtValue returns the location of value id in block of fn.
func AtValue(fn, block string, id ir.ValueID) Location {
	return Location{Func: fn, Block: block, Value: id}
}

func (l Location) String() string {
	var parts []string
	if l.Func != "" {
		parts = append(parts, "@"+l.Func)
	}
	if l.Block != "" {
		parts = append(parts, l.Block)
	}
	if l.Value != ir.NoValueID {
		parts = append(parts, fmt.Sprintf("%%%d", l.Value))
	}
	if len(parts) == 0 {
		return "<module>"
	}
	return strings.Join(parts, ":")
}

// Note is secondary information attached to a diagnostic.
type Note struct {
	Loc Location
	Msg string
}

// Diagnostic is one finding of the verifier or the regularizer.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

// New builds a diagnostic without notes.
func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

// NewError is New with SevError.
func NewError(code Code, primary Location, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote appends a note.
func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Primary, d.Severity, d.Code.ID(), d.Message)
}
