package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"mica/internal/pipeline"
)

func runSession(input string, backend pipeline.Backend) []string {
	var out bytes.Buffer
	Start(strings.NewReader(input), &out, backend)
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func TestReplEvaluatesExpressions(t *testing.T) {
	lines := runSession("1 + 2\n", pipeline.Bytecode)
	assert.Equal(t, []string{"3"}, lines)
}

func TestReplAppendsSemicolonToBareExpressions(t *testing.T) {
	lines := runSession("40 + 2\n", pipeline.AST)
	assert.Equal(t, []string{"42"}, lines)
}

func TestReplAccumulatesSessionState(t *testing.T) {
	lines := runSession("let x = 1;\nx + 1\nx + 2\n", pipeline.Bytecode)
	assert.Equal(t, []string{"1", "2", "3"}, lines)
}

func TestReplAccumulatesUntilBracesClose(t *testing.T) {
	input := "let i = 0;\nwhile (i < 3) {\ni++;\n}\ni\n"
	lines := runSession(input, pipeline.Bytecode)
	assert.Equal(t, "3", lines[len(lines)-1])
}

func TestReplDiscardsFailingIncrement(t *testing.T) {
	// The bad line must not poison the session: x stays usable.
	input := "let x = 5;\nreturn ghost;\nx\n"
	lines := runSession(input, pipeline.Bytecode)
	assert.Contains(t, strings.Join(lines, "\n"), "undefined variable 'ghost'")
	assert.Equal(t, "5", lines[len(lines)-1])
}

func TestReplRejectsUnmatchedClosingBrace(t *testing.T) {
	lines := runSession("}\n1\n", pipeline.Bytecode)
	assert.Equal(t, "error: unmatched closing brace", lines[0])
	assert.Equal(t, "1", lines[len(lines)-1])
}

func TestReplSkipsBlankLines(t *testing.T) {
	lines := runSession("\n\n7\n", pipeline.Bytecode)
	assert.Equal(t, []string{"7"}, lines)
}
