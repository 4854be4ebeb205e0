// Package observ collects per-run measurements of the regularizer: phase
// timings and rewrite counters.
package observ

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Phase records the duration of one regularizer phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks phase durations. A nil *Timer ignores every call, so callers
// never need to check whether timings were requested.
type Timer struct {
	phases []Phase
	counts map[string]int
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer {
	return &Timer{phases: make([]Phase, 0, 8), counts: make(map[string]int)}
}

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if t == nil || idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Count adds n to the named rewrite counter.
func (t *Timer) Count(name string, n int) {
	if t == nil || n == 0 {
		return
	}
	t.counts[name] += n
}

// Counter returns the current value of a counter.
func (t *Timer) Counter(name string) int {
	if t == nil {
		return 0
	}
	return t.counts[name]
}

// Summary renders phases and counters as an aligned table.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-24s %8.3f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-24s %8.3f ms\n", "total", report.TotalMS)
	if len(report.Counters) > 0 {
		sb.WriteString("rewrites:\n")
		for _, c := range report.Counters {
			fmt.Fprintf(&sb, "  %-24s %8d\n", c.Name, c.Value)
		}
	}
	return sb.String()
}

// PhaseReport is the serializable form of one phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// CounterReport is the serializable form of one counter.
type CounterReport struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Report aggregates a timer.
type Report struct {
	TotalMS  float64         `json:"total_ms"`
	Phases   []PhaseReport   `json:"phases"`
	Counters []CounterReport `json:"counters,omitempty"`
}

// Report returns phases in start order and counters sorted by name.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	names := make([]string, 0, len(t.counts))
	for name := range t.counts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		report.Counters = append(report.Counters, CounterReport{Name: name, Value: t.counts[name]})
	}
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
