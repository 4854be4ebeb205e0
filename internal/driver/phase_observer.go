package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a per-file phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
	// PhaseDone and PhaseFailed close a file; Name is empty.
	PhaseDone
	PhaseFailed
)

// PhaseEvent describes a timing phase boundary of one input file.
type PhaseEvent struct {
	Path    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during RunFiles. It is called
// from worker goroutines and must be safe for concurrent use.
type PhaseObserver func(PhaseEvent)
