package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats diagnostics against the source they refer to, in a
// caret-marker style. Color is optional so callers can disable it when
// they are not attached to a terminal.
type Reporter struct {
	filename string
	lines    []string
	colored  bool
}

func NewReporter(filename, source string) *Reporter {
	return &Reporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
		colored:  true,
	}
}

// DisableColor turns the reporter into a plain-text formatter.
func (r *Reporter) DisableColor() {
	r.colored = false
}

func (r *Reporter) paint(c *color.Color, s string) string {
	if !r.colored {
		return s
	}
	return c.Sprint(s)
}

// Format renders one diagnostic with its source line and a caret marker.
func (r *Reporter) Format(d Diagnostic) string {
	errColor := color.New(color.FgRed, color.Bold)
	dimColor := color.New(color.Faint)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]: %s\n",
		r.paint(errColor, "error"), d.Kind.Code(), d.Message())

	line := d.Position.Line
	if line <= 0 || line > len(r.lines) {
		return sb.String()
	}

	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	indent := strings.Repeat(" ", width)

	fmt.Fprintf(&sb, "%s %s %s:%d:%d\n",
		indent, r.paint(dimColor, "-->"), r.filename, line, d.Position.Column)
	fmt.Fprintf(&sb, "%s %s\n", indent, r.paint(dimColor, "|"))
	fmt.Fprintf(&sb, "%*d %s %s\n",
		width, line, r.paint(dimColor, "|"), r.lines[line-1])

	length := d.Length
	if length <= 0 {
		length = 1
	}
	marker := strings.Repeat(" ", max(0, d.Position.Column-1)) +
		r.paint(errColor, strings.Repeat("^", length))
	fmt.Fprintf(&sb, "%s %s %s\n", indent, r.paint(dimColor, "|"), marker)

	return sb.String()
}

// FormatAll renders every diagnostic, blank-line separated.
func (r *Reporter) FormatAll(diags []Diagnostic) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = r.Format(d)
	}
	return strings.Join(parts, "\n")
}
