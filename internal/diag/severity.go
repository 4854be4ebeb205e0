package diag

import "strconv"

// Severity ranks a diagnostic. A file fails only when its bag holds a
// SevError.
type Severity uint8

const (
	// SevInfo carries notes that never fail a run, such as phase timings.
	SevInfo Severity = iota
	// SevWarning flags a degraded run, e.g. an unwritable cache entry.
	SevWarning
	// SevError is raised by the verifier, by pass invariants and by file I/O.
	SevError
)

var severityNames = [...]string{
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "Severity(" + strconv.Itoa(int(s)) + ")"
}
