// Package interp evaluates the AST directly. It is the reference oracle
// for the bytecode pipeline: on every terminating program both backends
// must produce the same value.
package interp

import (
	"fmt"

	"mica/internal/ast"
	"mica/internal/errors"
)

// Interpreter carries the lexical scope stack plus the same three heap
// tables the bytecode interpreter keeps. Variables live in *uint64 cells
// so pointers can alias a binding and observe later writes.
type Interpreter struct {
	scopes    []map[string]*uint64
	functions map[string]*ast.FunctionDecl

	arrays     map[uint64][]uint64
	structs    map[uint64]map[string]uint64
	pointers   map[uint64]*uint64
	nextHeapID uint64

	returning bool
}

func New() *Interpreter {
	return &Interpreter{}
}

// Interpret runs a whole program and returns its result value.
func (in *Interpreter) Interpret(program *ast.Block) (uint64, error) {
	in.scopes = []map[string]*uint64{{}}
	in.functions = map[string]*ast.FunctionDecl{}
	in.arrays = map[uint64][]uint64{}
	in.structs = map[uint64]map[string]uint64{}
	in.pointers = map[uint64]*uint64{}
	in.nextHeapID = 1
	in.returning = false

	// Hoist declarations so calls resolve regardless of where the
	// declaration sits, matching the checker's arity table and the
	// bytecode builder's flat function table.
	in.hoistFunctions(program)

	result := uint64(0)
	for _, stmt := range program.Stmts {
		value, err := in.eval(stmt)
		if err != nil {
			return 0, err
		}
		result = value
		if in.returning {
			break
		}
	}
	return result, nil
}

// hoistFunctions registers every function declaration in the tree,
// nested ones included.
func (in *Interpreter) hoistFunctions(node ast.Node) {
	switch n := node.(type) {
	case *ast.Block:
		for _, stmt := range n.Stmts {
			in.hoistFunctions(stmt)
		}
	case *ast.FunctionDecl:
		in.functions[n.Name] = n
		in.hoistFunctions(n.Body)
	case *ast.IfStmt:
		in.hoistFunctions(n.Then)
		in.hoistFunctions(n.Else)
	case *ast.WhileStmt:
		in.hoistFunctions(n.Body)
	}
}

func (in *Interpreter) pushScope() {
	in.scopes = append(in.scopes, map[string]*uint64{})
}

func (in *Interpreter) popScope() {
	in.scopes = in.scopes[:len(in.scopes)-1]
}

func (in *Interpreter) lookup(name string) (*uint64, bool) {
	for i := len(in.scopes) - 1; i >= 0; i-- {
		if cell, ok := in.scopes[i][name]; ok {
			return cell, true
		}
	}
	return nil, false
}

func (in *Interpreter) allocID() uint64 {
	id := in.nextHeapID
	in.nextHeapID++
	return id
}

// evalBlock runs a block in a fresh scope and yields the value of its
// last statement, stopping early on return.
func (in *Interpreter) evalBlock(block *ast.Block) (uint64, error) {
	in.pushScope()
	defer in.popScope()

	result := uint64(0)
	for _, stmt := range block.Stmts {
		value, err := in.eval(stmt)
		if err != nil {
			return 0, err
		}
		result = value
		if in.returning {
			break
		}
	}
	return result, nil
}

func (in *Interpreter) eval(node ast.Node) (uint64, error) {
	switch n := node.(type) {
	case *ast.LiteralExpr:
		return n.Value, nil

	case *ast.IdentExpr:
		cell, ok := in.lookup(n.Name)
		if !ok {
			return 0, fmt.Errorf("undefined variable '%s'", n.Name)
		}
		return *cell, nil

	case *ast.LetStmt:
		value, err := in.eval(n.Init)
		if err != nil {
			return 0, err
		}
		cell := new(uint64)
		*cell = value
		in.scopes[len(in.scopes)-1][n.Name] = cell
		return value, nil

	case *ast.AssignExpr:
		value, err := in.eval(n.Value)
		if err != nil {
			return 0, err
		}
		cell, ok := in.lookup(n.Name)
		if !ok {
			return 0, fmt.Errorf("undefined variable '%s'", n.Name)
		}
		*cell = value
		return value, nil

	case *ast.IncrementExpr:
		cell, ok := in.lookup(n.Target.Name)
		if !ok {
			return 0, fmt.Errorf("undefined variable '%s'", n.Target.Name)
		}
		old := *cell
		*cell = old + 1
		return old, nil

	case *ast.BinaryExpr:
		return in.evalBinary(n)

	case *ast.UnaryExpr:
		return in.evalUnary(n)

	case *ast.FunctionDecl:
		in.functions[n.Name] = n
		return 0, nil

	case *ast.CallExpr:
		return in.evalCall(n)

	case *ast.ReturnStmt:
		value, err := in.eval(n.Value)
		if err != nil {
			return 0, err
		}
		in.returning = true
		return value, nil

	case *ast.IfStmt:
		cond, err := in.eval(n.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return in.evalBlock(n.Then)
		}
		return in.evalBlock(n.Else)

	case *ast.WhileStmt:
		result := uint64(0)
		for {
			cond, err := in.eval(n.Cond)
			if err != nil {
				return 0, err
			}
			if cond == 0 {
				return result, nil
			}
			result, err = in.evalBlock(n.Body)
			if err != nil {
				return 0, err
			}
			if in.returning {
				return result, nil
			}
		}

	case *ast.ArrayLiteralExpr:
		elems := make([]uint64, 0, len(n.Elems))
		for _, elem := range n.Elems {
			value, err := in.eval(elem)
			if err != nil {
				return 0, err
			}
			elems = append(elems, value)
		}
		id := in.allocID()
		in.arrays[id] = elems
		return id, nil

	case *ast.IndexExpr:
		handle, err := in.eval(n.Target)
		if err != nil {
			return 0, err
		}
		index, err := in.eval(n.Index)
		if err != nil {
			return 0, err
		}
		array, ok := in.arrays[handle]
		if !ok {
			return 0, &errors.RuntimeError{Kind: errors.UnknownArray, Handle: handle}
		}
		if index >= uint64(len(array)) {
			return 0, &errors.RuntimeError{
				Kind: errors.IndexOutOfRange, Index: index, Length: len(array),
			}
		}
		return array[index], nil

	case *ast.IndexAssignExpr:
		handle, err := in.eval(n.Target)
		if err != nil {
			return 0, err
		}
		index, err := in.eval(n.Index)
		if err != nil {
			return 0, err
		}
		value, err := in.eval(n.Value)
		if err != nil {
			return 0, err
		}
		array, ok := in.arrays[handle]
		if !ok {
			return 0, &errors.RuntimeError{Kind: errors.UnknownArray, Handle: handle}
		}
		if index >= uint64(len(array)) {
			return 0, &errors.RuntimeError{
				Kind: errors.IndexOutOfRange, Index: index, Length: len(array),
			}
		}
		array[index] = value
		return value, nil

	case *ast.StructLiteralExpr:
		fields := make(map[string]uint64, len(n.Fields))
		for _, field := range n.Fields {
			value, err := in.eval(field.Value)
			if err != nil {
				return 0, err
			}
			fields[field.Name] = value
		}
		id := in.allocID()
		in.structs[id] = fields
		return id, nil

	case *ast.FieldAccessExpr:
		handle, err := in.eval(n.Target)
		if err != nil {
			return 0, err
		}
		fields, ok := in.structs[handle]
		if !ok {
			return 0, &errors.RuntimeError{Kind: errors.UnknownStruct, Handle: handle}
		}
		value, ok := fields[n.Field]
		if !ok {
			return 0, &errors.RuntimeError{
				Kind: errors.MissingField, Handle: handle, Field: n.Field,
			}
		}
		return value, nil

	case *ast.Block:
		return in.evalBlock(n)
	}

	return 0, fmt.Errorf("unhandled node %T", node)
}

func (in *Interpreter) evalBinary(n *ast.BinaryExpr) (uint64, error) {
	// Logical operators short-circuit and normalize to 0/1.
	if n.Op == ast.LogicalAnd || n.Op == ast.LogicalOr {
		left, err := in.eval(n.Left)
		if err != nil {
			return 0, err
		}
		if n.Op == ast.LogicalAnd && left == 0 {
			return 0, nil
		}
		if n.Op == ast.LogicalOr && left != 0 {
			return 1, nil
		}
		right, err := in.eval(n.Right)
		if err != nil {
			return 0, err
		}
		return boolValue(right != 0), nil
	}

	left, err := in.eval(n.Left)
	if err != nil {
		return 0, err
	}
	right, err := in.eval(n.Right)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case ast.Add:
		return left + right, nil
	case ast.Subtract:
		return left - right, nil
	case ast.Multiply:
		return left * right, nil
	case ast.Divide:
		if right == 0 {
			return 0, &errors.RuntimeError{Kind: errors.DivisionByZero}
		}
		return left / right, nil
	case ast.Modulo:
		if right == 0 {
			return 0, &errors.RuntimeError{Kind: errors.DivisionByZero}
		}
		return left % right, nil
	case ast.LessThan:
		return boolValue(left < right), nil
	case ast.GreaterThan:
		return boolValue(left > right), nil
	case ast.LessThanOrEqual:
		return boolValue(left <= right), nil
	case ast.GreaterThanOrEqual:
		return boolValue(left >= right), nil
	case ast.Equal:
		return boolValue(left == right), nil
	case ast.NotEqual:
		return boolValue(left != right), nil
	}
	return 0, fmt.Errorf("unhandled binary operator %s", n.Op)
}

func (in *Interpreter) evalUnary(n *ast.UnaryExpr) (uint64, error) {
	if n.Op == ast.AddressOf {
		// Address of a variable aliases its cell; address of anything
		// else snapshots the value into a fresh cell. Either way the
		// pointer id itself is fresh.
		if ident, ok := n.Operand.(*ast.IdentExpr); ok {
			cell, found := in.lookup(ident.Name)
			if !found {
				return 0, fmt.Errorf("undefined variable '%s'", ident.Name)
			}
			id := in.allocID()
			in.pointers[id] = cell
			return id, nil
		}
		value, err := in.eval(n.Operand)
		if err != nil {
			return 0, err
		}
		cell := new(uint64)
		*cell = value
		id := in.allocID()
		in.pointers[id] = cell
		return id, nil
	}

	value, err := in.eval(n.Operand)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case ast.Negate:
		return -value, nil
	case ast.UnaryPlus:
		return value, nil
	case ast.LogicalNot:
		return boolValue(value == 0), nil
	case ast.Dereference:
		cell, ok := in.pointers[value]
		if !ok {
			return 0, &errors.RuntimeError{Kind: errors.UnknownPointer, Handle: value}
		}
		return *cell, nil
	}
	return 0, fmt.Errorf("unhandled unary operator %s", n.Op)
}

func (in *Interpreter) evalCall(n *ast.CallExpr) (uint64, error) {
	decl, ok := in.functions[n.Callee]
	if !ok {
		return 0, fmt.Errorf("undefined function '%s'", n.Callee)
	}

	args := make([]uint64, 0, len(n.Args))
	for _, arg := range n.Args {
		value, err := in.eval(arg)
		if err != nil {
			return 0, err
		}
		args = append(args, value)
	}

	// The callee gets a scope stack holding its parameters only.
	callerScopes := in.scopes
	in.scopes = []map[string]*uint64{{}}
	for i, param := range decl.Params {
		cell := new(uint64)
		if i < len(args) {
			*cell = args[i]
		}
		in.scopes[0][param] = cell
	}

	result, err := in.evalBlock(decl.Body)
	in.scopes = callerScopes
	if err != nil {
		return 0, err
	}
	in.returning = false
	return result, nil
}

func boolValue(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
