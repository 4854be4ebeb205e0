package main

import (
	"fmt"
	"io"

	"spvregular/internal/driver"
	"spvregular/internal/observ"
)

// printFileTimings writes one block per file in the style of Timer.Summary.
func printFileTimings(out io.Writer, results []driver.FileResult) {
	var total float64
	for i := range results {
		res := &results[i]
		if res.Timing == nil {
			continue
		}
		fmt.Fprintf(out, "%s:\n", res.Path)
		printReport(out, *res.Timing)
		total += fileMillis(*res.Timing)
	}
	if len(results) > 1 {
		fmt.Fprintf(out, "all files %.1f ms\n", total)
	}
}

func printReport(out io.Writer, report observ.Report) {
	for _, p := range report.Phases {
		fmt.Fprintf(out, "  %-24s %8.3f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(out, "  // %s", p.Note)
		}
		fmt.Fprintln(out)
	}
	for _, c := range report.Counters {
		fmt.Fprintf(out, "  %-24s %8d\n", c.Name, c.Value)
	}
}

// fileMillis sums the driver-level phases only; pass phases nest inside
// "regularize".
func fileMillis(report observ.Report) float64 {
	var ms float64
	for _, p := range report.Phases {
		switch p.Name {
		case "load", "regularize", "write", "check":
			ms += p.DurationMS
		}
	}
	return ms
}
