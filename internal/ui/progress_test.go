package ui

import (
	"strings"
	"testing"

	"spvregular/internal/driver"
)

func TestProgressModelTracksFiles(t *testing.T) {
	m := NewProgressModel("regularize", []string{"a.mp", "b.mp"}, nil).(*progressModel)

	m.applyEvent(driver.PhaseEvent{Path: "a.mp", Name: "load", Status: driver.PhaseStart})
	if got := m.items[0].status; got != "loading" {
		t.Fatalf("a.mp status = %q, want loading", got)
	}
	m.applyEvent(driver.PhaseEvent{Path: "a.mp", Status: driver.PhaseDone})
	m.applyEvent(driver.PhaseEvent{Path: "b.mp", Name: "regularize", Status: driver.PhaseStart})
	m.applyEvent(driver.PhaseEvent{Path: "b.mp", Status: driver.PhaseFailed})
	m.applyEvent(driver.PhaseEvent{Path: "unknown.mp", Status: driver.PhaseDone})

	if m.completed != 2 || m.failed != 1 {
		t.Fatalf("completed=%d failed=%d, want 2 and 1", m.completed, m.failed)
	}
	view := m.View()
	for _, want := range []string{"regularize (2/2), 1 failed", "done", "error", "a.mp", "b.mp"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view misses %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short.mp", 20, "short.mp"},
		{"a/very/long/path.mp", 10, "a/ve..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
