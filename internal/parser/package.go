package parser

import (
	"mica/internal/ast"
	"mica/internal/errors"
)

// ParseSource scans and parses a whole program. The returned diagnostic
// list carries lexical errors first, then syntactic ones; the AST is
// always non-nil.
func ParseSource(source string) (*ast.Block, []errors.Diagnostic) {
	scanner := NewScanner(source)
	tokens := scanner.ScanTokens()

	parser := NewParser(tokens)
	program := parser.ParseProgram()

	diags := append([]errors.Diagnostic{}, scanner.Errors()...)
	diags = append(diags, parser.Errors()...)
	return program, diags
}

// ParseExpressionSource scans and parses a single expression.
func ParseExpressionSource(source string) (ast.Node, []errors.Diagnostic) {
	scanner := NewScanner(source)
	tokens := scanner.ScanTokens()

	parser := NewParser(tokens)
	expr := parser.ParseExpression()

	diags := append([]errors.Diagnostic{}, scanner.Errors()...)
	diags = append(diags, parser.Errors()...)
	return expr, diags
}
