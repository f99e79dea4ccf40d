// Package pipeline wires the phases together: scan and parse, shape
// check, then either walk the AST directly or lower to blocks, optimize,
// and run the register machine. Any parse or semantic diagnostic aborts
// the run before lowering.
package pipeline

import (
	"mica/internal/ast"
	"mica/internal/errors"
	"mica/internal/interp"
	"mica/internal/ir"
	"mica/internal/optimizer"
	"mica/internal/parser"
	"mica/internal/semantic"
	"mica/internal/vm"
)

// Backend selects the execution path.
type Backend int

const (
	Bytecode Backend = iota
	AST
)

// Run pipelines one source text to a result value. When diagnostics are
// returned the value is meaningless; a non-nil error is a runtime fault.
func Run(source string, backend Backend) (uint64, []errors.Diagnostic, error) {
	program, diags := frontend(source)
	if len(diags) > 0 {
		return 0, diags, nil
	}

	if backend == AST {
		value, err := interp.New().Interpret(program)
		return value, nil, err
	}

	blocks, err := Lower(program)
	if err != nil {
		return 0, nil, err
	}
	value, err := vm.New().Interpret(blocks)
	return uint64(value), nil, err
}

// Dump renders the chosen representation after checking (and, for
// bytecode, optimization) instead of running it.
func Dump(source string, backend Backend) (string, []errors.Diagnostic, error) {
	program, diags := frontend(source)
	if len(diags) > 0 {
		return "", diags, nil
	}

	if backend == AST {
		return ast.Dump(program), nil, nil
	}

	blocks, err := Lower(program)
	if err != nil {
		return "", nil, err
	}
	return ir.Dump(blocks), nil, nil
}

// Lower generates and optimizes the block vector for a checked program,
// first rewriting a trailing expression statement into a return so the
// register machine yields the same value the tree walker would.
func Lower(program *ast.Block) ([]ir.Block, error) {
	ensureTrailingReturn(program)
	blocks, err := ir.Generate(program)
	if err != nil {
		return nil, err
	}
	return optimizer.Optimize(blocks), nil
}

func frontend(source string) (*ast.Block, []errors.Diagnostic) {
	program, diags := parser.ParseSource(source)
	if len(diags) > 0 {
		return program, diags
	}
	return program, semantic.Check(program)
}

func ensureTrailingReturn(program *ast.Block) {
	if len(program.Stmts) == 0 {
		return
	}
	last := program.Stmts[len(program.Stmts)-1]
	if _, ok := last.(*ast.ReturnStmt); ok {
		return
	}
	program.Stmts[len(program.Stmts)-1] = &ast.ReturnStmt{
		Pos:   last.NodePos(),
		Value: last,
	}
}
