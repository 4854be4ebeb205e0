// Package diagfmt renders diagnostics of many files in machine-readable
// formats.
package diagfmt

import (
	"encoding/json"
	"io"

	"spvregular/internal/diag"
	"spvregular/internal/ir"
)

// LocationJSON is a position inside a module.
type LocationJSON struct {
	Func  string `json:"func,omitempty"`
	Block string `json:"block,omitempty"`
	Value *int64 `json:"value,omitempty"`
}

// NoteJSON is one note of a diagnostic.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// FileJSON groups the diagnostics of one input.
type FileJSON struct {
	Path        string           `json:"path"`
	Module      string           `json:"module,omitempty"`
	Output      string           `json:"output,omitempty"`
	Failed      bool             `json:"failed"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// DiagnosticsOutput is the root of the JSON output.
type DiagnosticsOutput struct {
	Files  []FileJSON `json:"files"`
	Count  int        `json:"count"`
	Failed int        `json:"failed"`
}

func makeLocation(loc diag.Location) LocationJSON {
	out := LocationJSON{Func: loc.Func, Block: loc.Block}
	if loc.Value != ir.NoValueID {
		v := int64(loc.Value)
		out.Value = &v
	}
	return out
}

// BuildDiagnosticsOutput builds the JSON structure without serializing it.
func BuildDiagnosticsOutput(files []FileDiagnostics, opts JSONOpts) DiagnosticsOutput {
	output := DiagnosticsOutput{Files: make([]FileJSON, 0, len(files))}
	for _, f := range files {
		fj := FileJSON{
			Path:        f.Path,
			Module:      f.Module,
			Output:      f.Output,
			Diagnostics: []DiagnosticJSON{},
		}
		var items []diag.Diagnostic
		if f.Bag != nil {
			items = f.Bag.Items()
			fj.Failed = f.Bag.HasErrors()
		}
		if opts.Max > 0 && opts.Max < len(items) {
			items = items[:opts.Max]
		}
		for _, d := range items {
			dj := DiagnosticJSON{
				Severity: d.Severity.String(),
				Code:     d.Code.ID(),
				Title:    d.Code.Title(),
				Message:  d.Message,
				Location: makeLocation(d.Primary),
			}
			// timing payloads live in the notes
			if (opts.IncludeNotes || d.Code == diag.ObsTimings) && len(d.Notes) > 0 {
				dj.Notes = make([]NoteJSON, len(d.Notes))
				for j, n := range d.Notes {
					dj.Notes[j] = NoteJSON{Message: n.Msg, Location: makeLocation(n.Loc)}
				}
			}
			fj.Diagnostics = append(fj.Diagnostics, dj)
		}
		output.Count += len(fj.Diagnostics)
		if fj.Failed {
			output.Failed++
		}
		output.Files = append(output.Files, fj)
	}
	return output
}

// JSON writes the diagnostics of every file as one indented document.
func JSON(w io.Writer, files []FileDiagnostics, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(files, opts))
}
