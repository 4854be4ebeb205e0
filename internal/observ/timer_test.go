package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("sanitize")
	tm.End(idx, "3 funcs")
	tm.Count("lower:fshl", 2)
	tm.Count("erase", 1)
	tm.Count("erase", 4)

	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Note != "3 funcs" {
		t.Fatalf("unexpected phases: %+v", r.Phases)
	}
	if len(r.Counters) != 2 || r.Counters[0].Name != "erase" || r.Counters[0].Value != 5 {
		t.Fatalf("unexpected counters: %+v", r.Counters)
	}
	if !strings.Contains(tm.Summary(), "lower:fshl") {
		t.Fatalf("summary misses counter:\n%s", tm.Summary())
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Count("y", 1)
	if tm.Counter("y") != 0 || len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer recorded data")
	}
}
