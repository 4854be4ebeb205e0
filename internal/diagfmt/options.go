package diagfmt

import "spvregular/internal/diag"

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Max          int // per file; trims the output, not the bag
	IncludeNotes bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}

// FileDiagnostics is the bag of one input file.
type FileDiagnostics struct {
	Path   string
	Module string
	Output string
	Bag    *diag.Bag
}
