package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"spvregular/internal/diag"
	"spvregular/internal/driver"
	"spvregular/internal/observ"
)

func TestPrintResultsSkipsTimings(t *testing.T) {
	color.NoColor = true
	ok := diag.NewBag(8)
	ok.Add(diag.New(diag.SevInfo, diag.ObsTimings, diag.NoLocation, "timings (run): total 1.00 ms"))
	bad := diag.NewBag(8)
	bad.Add(diag.NewError(diag.VerMissingTerminator, diag.AtValue("f", "entry", 3), "block does not end with a terminator"))

	var out bytes.Buffer
	failed, err := printResults(&out, []driver.FileResult{
		{Path: "ok.mp", Bag: ok},
		{Path: "bad.mp", Bag: bad},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	got := out.String()
	if strings.Contains(got, "ok.mp") || strings.Contains(got, "timings") {
		t.Fatalf("timing diagnostics leaked:\n%s", got)
	}
	if !strings.Contains(got, "bad.mp:\n@f:entry:%3: ERROR VER1001") {
		t.Fatalf("unexpected output:\n%s", got)
	}
	if err := errFailedFiles(failed, 2); err == nil || err.Error() != "1 of 2 files failed" {
		t.Fatalf("errFailedFiles = %v", err)
	}
}

func TestFileMillisCountsDriverPhases(t *testing.T) {
	report := observ.Report{Phases: []observ.PhaseReport{
		{Name: "load", DurationMS: 1},
		{Name: "regularize", DurationMS: 4},
		{Name: "walk", DurationMS: 3},
		{Name: "verify", DurationMS: 1},
		{Name: "write", DurationMS: 2},
	}}
	if got := fileMillis(report); got != 7 {
		t.Fatalf("fileMillis = %v, want 7", got)
	}
}
