// Package version carries build metadata of the spvregular CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with each semantic component in its own color.
// Suffixes such as "-dev" stay uncolored. Color output follows
// color.NoColor.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Line returns the one-line banner printed by `spvregular version`.
func Line(colored bool) string {
	v := Version
	if colored {
		v = Colored()
	}
	line := "spvregular " + v
	if GitCommit != "" {
		line += fmt.Sprintf(" (%s)", GitCommit)
	}
	if BuildDate != "" {
		line += " built " + BuildDate
	}
	return line
}
