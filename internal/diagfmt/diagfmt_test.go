package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"spvregular/internal/diag"
)

func sampleFiles() []FileDiagnostics {
	bad := diag.NewBag(10)
	bad.Add(diag.NewError(diag.VerMissingTerminator, diag.AtValue("open", "entry", 4), "block does not end with a terminator").
		WithNote(diag.At("open"), "function defined here"))
	bad.Add(diag.New(diag.SevInfo, diag.ObsTimings, diag.NoLocation, "timings (run): total 1.00 ms").
		WithNote(diag.NoLocation, `{"kind":"run"}`))
	ok := diag.NewBag(10)
	return []FileDiagnostics{
		{Path: "broken.mp", Module: "broken", Bag: bad},
		{Path: "good.mp", Module: "good", Output: "out/good.mp", Bag: ok},
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleFiles(), JSONOpts{}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if output.Count != 2 || output.Failed != 1 || len(output.Files) != 2 {
		t.Fatalf("count=%d failed=%d files=%d", output.Count, output.Failed, len(output.Files))
	}

	first := output.Files[0].Diagnostics[0]
	if first.Severity != "ERROR" || first.Code != "VER1001" {
		t.Errorf("unexpected diagnostic %+v", first)
	}
	if first.Location.Func != "open" || first.Location.Block != "entry" || first.Location.Value == nil || *first.Location.Value != 4 {
		t.Errorf("unexpected location %+v", first.Location)
	}
	if len(first.Notes) != 0 {
		t.Errorf("notes included without IncludeNotes: %+v", first.Notes)
	}
	if timing := output.Files[0].Diagnostics[1]; len(timing.Notes) != 1 {
		t.Errorf("timing payload dropped: %+v", timing)
	}

	good := output.Files[1]
	if good.Failed || good.Output != "out/good.mp" || len(good.Diagnostics) != 0 {
		t.Errorf("unexpected good file %+v", good)
	}
}

func TestJSONMaxAndNotes(t *testing.T) {
	out := BuildDiagnosticsOutput(sampleFiles(), JSONOpts{Max: 1, IncludeNotes: true})
	diags := out.Files[0].Diagnostics
	if len(diags) != 1 {
		t.Fatalf("Max ignored: %d diagnostics", len(diags))
	}
	if len(diags[0].Notes) != 1 || diags[0].Notes[0].Location.Func != "open" {
		t.Fatalf("unexpected notes %+v", diags[0].Notes)
	}
	if diags[0].Notes[0].Location.Value != nil {
		t.Fatalf("function location got a value")
	}
}

func TestSarif(t *testing.T) {
	var buf bytes.Buffer
	meta := SarifRunMeta{ToolName: "spvregular", ToolVersion: "1.0.0", InvocationArgs: []string{"verify", "broken.mp"}}
	if err := Sarif(&buf, sampleFiles(), meta); err != nil {
		t.Fatalf("Sarif() error: %v", err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("unexpected log header %+v", log)
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "spvregular" || len(run.Tool.Driver.Rules) != 1 || run.Tool.Driver.Rules[0].ID != "VER1001" {
		t.Fatalf("unexpected driver %+v", run.Tool.Driver)
	}
	if len(run.Results) != 1 {
		t.Fatalf("want 1 result without timings, got %d", len(run.Results))
	}
	res := run.Results[0]
	if res.Level != "error" || res.Locations[0].PhysicalLocation.ArtifactLocation.URI != "broken.mp" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := res.Locations[0].LogicalLocations[0].FullyQualifiedName; got != "open::entry" {
		t.Fatalf("logical location = %q", got)
	}
	if run.Invocations[0].ExecutionSuccessful {
		t.Fatal("execution marked successful despite errors")
	}
}
