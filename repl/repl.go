// Package repl implements the interactive loop. Input accumulates line
// by line until brace depth returns to zero, then the whole session
// pipeline runs and the result prints. A failing increment is discarded
// so the session state stays at the last good program.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"mica/internal/errors"
	"mica/internal/pipeline"
)

const (
	prompt             = ">>> "
	continuationPrompt = "... "
)

// Start reads from in until EOF. Prompts are suppressed when in is not
// a terminal so piped scripts behave.
func Start(in io.Reader, out io.Writer, backend pipeline.Backend) {
	interactive := false
	if file, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(file.Fd())
	}

	scanner := bufio.NewScanner(in)
	source := ""
	braceDepth := 0

	for {
		if interactive {
			if braceDepth > 0 {
				fmt.Fprint(out, continuationPrompt)
			} else {
				fmt.Fprint(out, prompt)
			}
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(out)
			}
			return
		}

		normalized := normalizeInput(scanner.Text())
		if normalized == "" {
			continue
		}

		previousSource := source
		previousDepth := braceDepth
		if source != "" {
			source += "\n"
		}
		source += normalized

		for _, ch := range normalized {
			switch ch {
			case '{':
				braceDepth++
			case '}':
				braceDepth--
			}
		}

		if braceDepth < 0 {
			fmt.Fprintln(out, "error: unmatched closing brace")
			source = previousSource
			braceDepth = 0
			continue
		}
		if braceDepth > 0 {
			continue
		}

		value, diags, err := pipeline.Run(source, backend)
		if len(diags) > 0 {
			reporter := errors.NewReporter("<repl>", source)
			if !interactive {
				reporter.DisableColor()
			}
			fmt.Fprint(out, reporter.FormatAll(diags))
			source = previousSource
			braceDepth = previousDepth
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			source = previousSource
			braceDepth = previousDepth
			continue
		}
		fmt.Fprintln(out, value)
	}
}

// normalizeInput trims a line and terminates bare expressions with ';'
// so `1 + 2` works without ceremony.
func normalizeInput(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	last := trimmed[len(trimmed)-1]
	if last != ';' && last != '{' && last != '}' {
		trimmed += ";"
	}
	return trimmed
}
