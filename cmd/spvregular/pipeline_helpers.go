package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spvregular/internal/diag"
	"spvregular/internal/diagfmt"
	"spvregular/internal/driver"
	"spvregular/internal/version"
)

type commonFlags struct {
	quiet          bool
	timings        bool
	maxDiagnostics int
}

func readCommonFlags(cmd *cobra.Command) (commonFlags, error) {
	pf := cmd.Root().PersistentFlags()
	var f commonFlags
	var err error
	if f.quiet, err = pf.GetBool("quiet"); err != nil {
		return f, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if f.timings, err = pf.GetBool("timings"); err != nil {
		return f, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if f.maxDiagnostics, err = pf.GetInt("max-diagnostics"); err != nil {
		return f, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return f, nil
}

// printResults prints the diagnostics of every file and returns the number
// of failed files. Timing diagnostics are left to printFileTimings.
func printResults(out io.Writer, results []driver.FileResult, withNotes bool) (int, error) {
	failed := 0
	for i := range results {
		res := &results[i]
		if res.Failed() {
			failed++
		}
		shown := diag.NewBag(res.Bag.Cap())
		for _, d := range res.Bag.Items() {
			if d.Code != diag.ObsTimings {
				shown.Add(d)
			}
		}
		if shown.Len() == 0 {
			continue
		}
		shown.Sort()
		shown.Dedup()
		if _, err := fmt.Fprintf(out, "%s:\n", res.Path); err != nil {
			return failed, err
		}
		if err := diag.Pretty(out, shown, diag.PrettyOpts{Color: useColor(), ShowNotes: withNotes}); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// errFailedFiles makes a command exit non-zero after diagnostics were printed.
func errFailedFiles(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed", failed, total)
}

func readFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json", "sarif":
		return format, nil
	default:
		return "", fmt.Errorf("unknown format: %s (must be pretty, json or sarif)", format)
	}
}

// emitResults writes the results in format and returns the number of failed
// files. Machine-readable formats carry everything in one document.
func emitResults(out io.Writer, results []driver.FileResult, format string, withNotes bool, maxDiagnostics int) (int, error) {
	if format == "pretty" {
		return printResults(out, results, withNotes)
	}
	files := make([]diagfmt.FileDiagnostics, len(results))
	failed := 0
	for i := range results {
		res := &results[i]
		if res.Failed() {
			failed++
		}
		files[i] = diagfmt.FileDiagnostics{Path: res.Path, Module: res.Module, Output: res.Output, Bag: res.Bag}
	}
	if format == "json" {
		return failed, diagfmt.JSON(out, files, diagfmt.JSONOpts{Max: maxDiagnostics, IncludeNotes: withNotes})
	}
	return failed, diagfmt.Sarif(out, files, diagfmt.SarifRunMeta{
		ToolName:       "spvregular",
		ToolVersion:    version.Version,
		InvocationArgs: os.Args[1:],
	})
}
