package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Width     int // maximum line width, 0 means unlimited
	ShowNotes bool
}

var (
	sevColor = map[Severity]*color.Color{
		SevInfo:    color.New(color.FgCyan),
		SevWarning: color.New(color.FgYellow, color.Bold),
		SevError:   color.New(color.FgRed, color.Bold),
	}
	locColor  = color.New(color.Bold)
	noteColor = color.New(color.FgBlue)
)

// Pretty writes the bag in `<loc>: <SEV> <CODE>: <message>` lines, each
// note indented below its diagnostic. Call Sort first for stable output.
func Pretty(w io.Writer, bag *Bag, opts PrettyOpts) error {
	paint := func(c *color.Color, s string) string {
		if !opts.Color {
			return s
		}
		c.EnableColor()
		return c.Sprint(s)
	}
	var sb strings.Builder
	for _, d := range bag.Items() {
		line := fmt.Sprintf("%s: %s %s: %s",
			paint(locColor, d.Primary.String()),
			paint(sevColor[d.Severity], d.Severity.String()),
			d.Code.ID(), d.Message)
		sb.WriteString(clip(line, opts.Width))
		sb.WriteString("\n")
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			note := fmt.Sprintf("  %s %s: %s", paint(noteColor, "note:"), n.Loc, n.Msg)
			sb.WriteString(clip(note, opts.Width))
			sb.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func clip(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
