package semantic

import (
	"mica/internal/ast"
	"mica/internal/errors"
)

// Analyzer walks a parsed program, assigns every expression a shape, and
// collects all semantic diagnostics in one pass.
//
// Function bodies are isolated: their environment is seeded with the
// parameter bindings only, so reads or writes of outer lexical names
// report UndefinedVariable. That isolation is what makes positional
// argument passing in the bytecode sound and keeps pointers to local
// slots from escaping a call frame.
type Analyzer struct {
	scopes    []map[string]*Shape
	functions map[string]int
	errors    []errors.Diagnostic
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		scopes:    []map[string]*Shape{{}},
		functions: map[string]int{},
	}
}

// Check analyzes a whole program and returns its diagnostics.
func Check(program *ast.Block) []errors.Diagnostic {
	analyzer := NewAnalyzer()
	// Arities are collected up front so calls to functions declared
	// later in the program resolve.
	analyzer.declareFunctions(program)
	for _, stmt := range program.Stmts {
		analyzer.checkStatement(stmt)
	}
	return analyzer.errors
}

// declareFunctions records every function's arity, wherever the
// declaration sits in the tree.
func (a *Analyzer) declareFunctions(node ast.Node) {
	switch n := node.(type) {
	case *ast.Block:
		for _, stmt := range n.Stmts {
			a.declareFunctions(stmt)
		}
	case *ast.FunctionDecl:
		a.functions[n.Name] = len(n.Params)
		a.declareFunctions(n.Body)
	case *ast.IfStmt:
		a.declareFunctions(n.Then)
		a.declareFunctions(n.Else)
	case *ast.WhileStmt:
		a.declareFunctions(n.Body)
	}
}

func (a *Analyzer) pushScope() {
	a.scopes = append(a.scopes, map[string]*Shape{})
}

func (a *Analyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *Analyzer) bind(name string, shape *Shape) {
	a.scopes[len(a.scopes)-1][name] = shape
}

func (a *Analyzer) lookup(name string) (*Shape, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if shape, ok := a.scopes[i][name]; ok {
			return shape, true
		}
	}
	return nil, false
}

// assign overwrites the innermost binding of name. Shape compatibility
// has already been validated by the caller.
func (a *Analyzer) assign(name string, shape *Shape) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if _, ok := a.scopes[i][name]; ok {
			a.scopes[i][name] = shape
			return
		}
	}
}

func (a *Analyzer) report(d errors.Diagnostic) {
	a.errors = append(a.errors, d)
}

func (a *Analyzer) checkBlock(block *ast.Block) {
	a.pushScope()
	for _, stmt := range block.Stmts {
		a.checkStatement(stmt)
	}
	a.popScope()
}

func (a *Analyzer) checkStatement(node ast.Node) {
	switch stmt := node.(type) {
	case *ast.LetStmt:
		a.bind(stmt.Name, a.checkExpression(stmt.Init))
	case *ast.FunctionDecl:
		a.checkFunctionDecl(stmt)
	case *ast.Block:
		a.checkBlock(stmt)
	default:
		a.checkExpression(node)
	}
}

func (a *Analyzer) checkFunctionDecl(decl *ast.FunctionDecl) {
	a.functions[decl.Name] = len(decl.Params)
	a.bind(decl.Name, functionShape)

	// The body sees its parameters and nothing else from the caller's
	// lexical world.
	outer := a.scopes
	a.scopes = []map[string]*Shape{{}}
	for _, param := range decl.Params {
		a.bind(param, unknownShape)
	}
	for _, stmt := range decl.Body.Stmts {
		a.checkStatement(stmt)
	}
	a.scopes = outer
}

func (a *Analyzer) checkExpression(node ast.Node) *Shape {
	switch expr := node.(type) {
	case *ast.LiteralExpr:
		return nonStructShape

	case *ast.IdentExpr:
		shape, ok := a.lookup(expr.Name)
		if !ok {
			a.report(errors.Diagnostic{
				Kind:     errors.UndefinedVariable,
				Position: expr.Pos,
				Length:   len(expr.Name),
				Name:     expr.Name,
			})
			return unknownShape
		}
		return shape

	case *ast.LetStmt:
		shape := a.checkExpression(expr.Init)
		a.bind(expr.Name, shape)
		return shape

	case *ast.AssignExpr:
		shape := a.checkExpression(expr.Value)
		target, ok := a.lookup(expr.Name)
		if !ok {
			a.report(errors.Diagnostic{
				Kind:     errors.UndefinedVariable,
				Position: expr.Pos,
				Length:   len(expr.Name),
				Name:     expr.Name,
			})
		} else if !Compatible(target, shape) {
			a.report(errors.Diagnostic{
				Kind:     errors.TypeMismatch,
				Position: expr.Pos,
				Length:   len(expr.Name),
				Name:     expr.Name,
				Want:     target.Kind.String(),
				Have:     shape.Kind.String(),
			})
		} else {
			a.assign(expr.Name, shape)
		}
		return shape

	case *ast.IncrementExpr:
		if _, ok := a.lookup(expr.Target.Name); !ok {
			a.report(errors.Diagnostic{
				Kind:     errors.UndefinedVariable,
				Position: expr.Target.Pos,
				Length:   len(expr.Target.Name),
				Name:     expr.Target.Name,
			})
		}
		return nonStructShape

	case *ast.CallExpr:
		for _, arg := range expr.Args {
			a.checkExpression(arg)
		}
		arity, ok := a.functions[expr.Callee]
		if !ok {
			if shape, found := a.lookup(expr.Callee); found &&
				shape.Kind != Unknown && shape.Kind != Function {
				a.report(errors.Diagnostic{
					Kind:     errors.NotCallable,
					Position: expr.Pos,
					Length:   len(expr.Callee),
					Name:     expr.Callee,
					Have:     shape.Kind.String(),
				})
			} else {
				a.report(errors.Diagnostic{
					Kind:     errors.UndefinedFunction,
					Position: expr.Pos,
					Length:   len(expr.Callee),
					Name:     expr.Callee,
				})
			}
			return unknownShape
		}
		if len(expr.Args) != arity {
			a.report(errors.Diagnostic{
				Kind:     errors.WrongArgCount,
				Position: expr.Pos,
				Length:   len(expr.Callee),
				Name:     expr.Callee,
				Expected: arity,
				Got:      len(expr.Args),
			})
		}
		return unknownShape

	case *ast.ReturnStmt:
		return a.checkExpression(expr.Value)

	case *ast.IfStmt:
		a.checkExpression(expr.Cond)
		a.checkBlock(expr.Then)
		a.checkBlock(expr.Else)
		return unknownShape

	case *ast.WhileStmt:
		a.checkExpression(expr.Cond)
		a.checkBlock(expr.Body)
		return unknownShape

	case *ast.BinaryExpr:
		a.checkExpression(expr.Left)
		a.checkExpression(expr.Right)
		return nonStructShape

	case *ast.UnaryExpr:
		a.checkExpression(expr.Operand)
		return nonStructShape

	case *ast.ArrayLiteralExpr:
		for _, elem := range expr.Elems {
			a.checkExpression(elem)
		}
		return arrayShape

	case *ast.IndexExpr:
		targetShape := a.checkExpression(expr.Target)
		a.checkExpression(expr.Index)
		if targetShape.Kind != Unknown && targetShape.Kind != Array {
			a.report(errors.Diagnostic{
				Kind:     errors.NotIndexable,
				Position: expr.Pos,
				Have:     targetShape.Kind.String(),
			})
		}
		return unknownShape

	case *ast.IndexAssignExpr:
		targetShape := a.checkExpression(expr.Target)
		a.checkExpression(expr.Index)
		if targetShape.Kind != Unknown && targetShape.Kind != Array {
			a.report(errors.Diagnostic{
				Kind:     errors.NotIndexable,
				Position: expr.Pos,
				Have:     targetShape.Kind.String(),
			})
		}
		return a.checkExpression(expr.Value)

	case *ast.StructLiteralExpr:
		fields := make(map[string]struct{}, len(expr.Fields))
		for _, field := range expr.Fields {
			fields[field.Name] = struct{}{}
			a.checkExpression(field.Value)
		}
		return structShape(fields)

	case *ast.FieldAccessExpr:
		targetShape := a.checkExpression(expr.Target)
		if targetShape.Kind != StructLiteral {
			a.report(errors.Diagnostic{
				Kind:     errors.NotAStruct,
				Position: expr.Pos,
				Have:     targetShape.Kind.String(),
			})
			return unknownShape
		}
		if _, ok := targetShape.Fields[expr.Field]; !ok {
			a.report(errors.Diagnostic{
				Kind:     errors.UndefinedField,
				Position: expr.Pos,
				Length:   len(expr.Field),
				Name:     expr.Field,
			})
		}
		return unknownShape

	case *ast.FunctionDecl:
		a.checkFunctionDecl(expr)
		return unknownShape

	case *ast.Block:
		a.checkBlock(expr)
		return unknownShape
	}

	return unknownShape
}
