package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica/internal/errors"
)

func tokenTypes(source string) []TokenType {
	tokens := NewScanner(source).ScanTokens()
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestScanSingleCharacterTokens(t *testing.T) {
	assert.Equal(t,
		[]TokenType{
			LEFT_PAREN, RIGHT_PAREN, LEFT_BRACE, RIGHT_BRACE,
			LEFT_BRACKET, RIGHT_BRACKET, COMMA, DOT, SEMICOLON, COLON, EOF,
		},
		tokenTypes("(){}[],.;:"))
}

func TestScanOperators(t *testing.T) {
	assert.Equal(t,
		[]TokenType{
			PLUS, INCREMENT, MINUS, STAR, SLASH, PERCENT,
			BANG, BANG_EQUAL, EQUAL, EQUAL_EQUAL,
			LESS, LESS_EQUAL, GREATER, GREATER_EQUAL,
			AMPERSAND, AND, PIPE, OR, EOF,
		},
		tokenTypes("+ ++ - * / % ! != = == < <= > >= & && | ||"))
}

func TestScanLogicalOperatorChain(t *testing.T) {
	assert.Equal(t,
		[]TokenType{NUMBER, OR, NUMBER, AND, NUMBER, EOF},
		tokenTypes("1 || 0 && 1"))
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	tokens := NewScanner("let while if else return fn struct foo _bar x1").ScanTokens()

	expected := []TokenType{
		LET, WHILE, IF, ELSE, RETURN, FN, STRUCT,
		IDENTIFIER, IDENTIFIER, IDENTIFIER, EOF,
	}
	require.Len(t, tokens, len(expected))
	for i, tt := range expected {
		assert.Equal(t, tt, tokens[i].Type)
	}
	assert.Equal(t, "foo", tokens[7].Lexeme)
	assert.Equal(t, "_bar", tokens[8].Lexeme)
	assert.Equal(t, "x1", tokens[9].Lexeme)
}

func TestScanNumbers(t *testing.T) {
	tokens := NewScanner("0 42 18446744073709551615").ScanTokens()
	require.Len(t, tokens, 4)
	assert.Equal(t, "0", tokens[0].Lexeme)
	assert.Equal(t, "42", tokens[1].Lexeme)
	assert.Equal(t, "18446744073709551615", tokens[2].Lexeme)
}

func TestScanLineComment(t *testing.T) {
	assert.Equal(t,
		[]TokenType{NUMBER, SEMICOLON, NUMBER, SEMICOLON, EOF},
		tokenTypes("1; // comment to end of line\n2;"))
}

func TestScanTracksPositions(t *testing.T) {
	tokens := NewScanner("let x = 1;\nx = 2;").ScanTokens()

	require.GreaterOrEqual(t, len(tokens), 6)
	assert.Equal(t, 1, tokens[0].Position.Line)
	assert.Equal(t, 1, tokens[0].Position.Column)
	assert.Equal(t, 1, tokens[1].Position.Line)
	assert.Equal(t, 5, tokens[1].Position.Column)

	// "x" on the second line.
	assert.Equal(t, 2, tokens[5].Position.Line)
	assert.Equal(t, 1, tokens[5].Position.Column)
}

func TestScanUnexpectedCharacter(t *testing.T) {
	scanner := NewScanner("let x = 1 # 2;")
	scanner.ScanTokens()

	diags := scanner.Errors()
	require.Len(t, diags, 1)
	assert.Equal(t, errors.UnexpectedChar, diags[0].Kind)
	assert.Equal(t, "#", diags[0].Found)
}

func TestScanContinuesAfterError(t *testing.T) {
	scanner := NewScanner("1 $ 2")
	tokens := scanner.ScanTokens()

	assert.Len(t, scanner.Errors(), 1)
	require.Len(t, tokens, 3)
	assert.Equal(t, NUMBER, tokens[0].Type)
	assert.Equal(t, NUMBER, tokens[1].Type)
	assert.Equal(t, EOF, tokens[2].Type)
}
