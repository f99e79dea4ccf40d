package ir

import (
	"fmt"

	"mica/internal/ast"
)

// Builder lowers a checked AST into the block vector. Every expression
// visit leaves its result in the most recently allocated register; a
// handful of defensive Moves keep that invariant across constructs that
// write variables or merge control flow.
type Builder struct {
	blocks []Block

	vars           map[string]Register
	functions      map[string]Label
	functionParams map[string][]Register
	pendingCalls   map[string][]instrRef

	regCount uint64
}

// instrRef names an emitted instruction by position so later patches
// survive slice growth.
type instrRef struct {
	block int
	index int
}

func NewBuilder() *Builder {
	return &Builder{
		vars:           map[string]Register{},
		functions:      map[string]Label{},
		functionParams: map[string][]Register{},
		pendingCalls:   map[string][]instrRef{},
	}
}

// Generate lowers a program and finalizes terminators. It fails only if
// a call target never resolved, which the semantic checker rules out for
// checked programs.
func Generate(program *ast.Block) ([]Block, error) {
	builder := NewBuilder()
	builder.visitBlock(program)
	if err := builder.finalize(); err != nil {
		return nil, err
	}
	return builder.blocks, nil
}

func (b *Builder) allocate() Register {
	reg := Register(b.regCount)
	b.regCount++
	return reg
}

func (b *Builder) current() Register {
	return Register(b.regCount - 1)
}

func (b *Builder) currentBlock() *Block {
	if len(b.blocks) == 0 {
		b.blocks = append(b.blocks, Block{})
	}
	return &b.blocks[len(b.blocks)-1]
}

func (b *Builder) startBlock() Label {
	b.blocks = append(b.blocks, Block{})
	return Label(len(b.blocks) - 1)
}

func (b *Builder) emit(in Instruction) instrRef {
	block := b.currentBlock()
	block.Append(in)
	return instrRef{block: len(b.blocks) - 1, index: len(block.Instructions) - 1}
}

func (b *Builder) at(ref instrRef) *Instruction {
	return &b.blocks[ref.block].Instructions[ref.index]
}

func (b *Builder) visitBlock(block *ast.Block) {
	b.startBlock()
	for _, stmt := range block.Stmts {
		b.visit(stmt)
	}
}

func (b *Builder) finalize() error {
	for name := range b.pendingCalls {
		return fmt.Errorf("call to undeclared function '%s' survived lowering", name)
	}
	for i := range b.blocks {
		block := &b.blocks[i]
		if block.HasTerminator() {
			continue
		}
		if i+1 < len(b.blocks) {
			block.Append(NewJump(Label(i + 1)))
		} else {
			reg := b.allocate()
			block.Append(NewLoad(reg, 0))
			block.Append(NewReturn(reg))
		}
	}
	return nil
}

func (b *Builder) visit(node ast.Node) {
	switch n := node.(type) {
	case *ast.LiteralExpr:
		b.emit(NewLoad(b.allocate(), Value(n.Value)))

	case *ast.IdentExpr:
		b.emit(NewMove(b.allocate(), b.vars[n.Name]))

	case *ast.LetStmt:
		b.visit(n.Init)
		src := b.current()
		dst := b.allocate()
		b.emit(NewMove(dst, src))
		b.vars[n.Name] = dst

	case *ast.AssignExpr:
		b.visit(n.Value)
		b.emit(NewMove(b.vars[n.Name], b.current()))

	case *ast.IncrementExpr:
		b.visit(n.Target)
		oldValue := b.current()
		incremented := b.allocate()
		b.emit(NewBinaryImmediate(AddImmediate, incremented, oldValue, 1))
		b.emit(NewMove(b.vars[n.Target.Name], incremented))
		// Post-increment evaluates to the value before the bump.
		result := b.allocate()
		b.emit(NewMove(result, oldValue))

	case *ast.BinaryExpr:
		b.visitBinary(n)

	case *ast.UnaryExpr:
		b.visitUnary(n)

	case *ast.FunctionDecl:
		b.visitFunctionDecl(n)

	case *ast.CallExpr:
		b.visitCall(n)

	case *ast.ReturnStmt:
		b.visit(n.Value)
		b.emit(NewReturn(b.current()))

	case *ast.IfStmt:
		b.startBlock()
		b.visit(n.Cond)
		jump := b.emit(NewJumpConditional(b.current(), 0, 0))

		thenLabel := Label(len(b.blocks))
		b.visitBlock(n.Then)
		jumpToEnd := b.emit(NewJump(0))

		elseLabel := Label(len(b.blocks))
		b.visitBlock(n.Else)
		endLabel := b.startBlock()

		b.at(jump).Label1 = thenLabel
		b.at(jump).Label2 = elseLabel
		b.at(jumpToEnd).Label1 = endLabel

	case *ast.WhileStmt:
		condLabel := b.startBlock()
		b.visit(n.Cond)
		jump := b.emit(NewJumpConditional(b.current(), 0, 0))

		bodyLabel := Label(len(b.blocks))
		b.visitBlock(n.Body)
		b.emit(NewJump(condLabel))
		endLabel := b.startBlock()

		b.at(jump).Label1 = bodyLabel
		b.at(jump).Label2 = endLabel

	case *ast.ArrayLiteralExpr:
		elems := make([]Register, 0, len(n.Elems))
		for _, elem := range n.Elems {
			b.visit(elem)
			elems = append(elems, b.current())
		}
		b.emit(NewArrayCreate(b.allocate(), elems))

	case *ast.IndexExpr:
		b.visit(n.Target)
		array := b.current()
		b.visit(n.Index)
		index := b.current()
		b.emit(NewArrayLoad(b.allocate(), array, index))

	case *ast.IndexAssignExpr:
		b.visit(n.Target)
		array := b.current()
		b.visit(n.Index)
		index := b.current()
		b.visit(n.Value)
		value := b.current()
		b.emit(NewArrayStore(array, index, value))

	case *ast.StructLiteralExpr:
		fields := make([]Field, 0, len(n.Fields))
		for _, field := range n.Fields {
			b.visit(field.Value)
			fields = append(fields, Field{Name: field.Name, Reg: b.current()})
		}
		b.emit(NewStructCreate(b.allocate(), fields))

	case *ast.FieldAccessExpr:
		b.visit(n.Target)
		object := b.current()
		b.emit(NewStructLoad(b.allocate(), object, n.Field))

	case *ast.Block:
		b.visitBlock(n)
	}
}

var binaryOps = map[ast.BinaryOp]struct {
	reg Op
	imm Op
}{
	ast.Add:                {Add, AddImmediate},
	ast.Subtract:           {Subtract, SubtractImmediate},
	ast.Multiply:           {Multiply, MultiplyImmediate},
	ast.Divide:             {Divide, DivideImmediate},
	ast.Modulo:             {Modulo, ModuloImmediate},
	ast.LessThan:           {LessThan, LessThanImmediate},
	ast.GreaterThan:        {GreaterThan, GreaterThanImmediate},
	ast.LessThanOrEqual:    {LessThanOrEqual, LessThanOrEqualImmediate},
	ast.GreaterThanOrEqual: {GreaterThanOrEqual, GreaterThanOrEqualImmediate},
	ast.Equal:              {Equal, EqualImmediate},
	ast.NotEqual:           {NotEqual, NotEqualImmediate},
}

func literalOf(node ast.Node) (Value, bool) {
	if lit, ok := node.(*ast.LiteralExpr); ok {
		return Value(lit.Value), true
	}
	return 0, false
}

func (b *Builder) visitBinary(n *ast.BinaryExpr) {
	if n.Op == ast.LogicalAnd || n.Op == ast.LogicalOr {
		b.visitLogical(n)
		return
	}

	ops := binaryOps[n.Op]
	left, right := n.Left, n.Right

	// Canonicalize a literal operand of a commutative op to the right so
	// it lands in the immediate slot.
	if n.Op.Commutative() {
		if _, leftLit := literalOf(left); leftLit {
			if _, rightLit := literalOf(right); !rightLit {
				left, right = right, left
			}
		}
	}

	if value, ok := literalOf(right); ok {
		b.visit(left)
		src := b.current()
		b.emit(NewBinaryImmediate(ops.imm, b.allocate(), src, value))
		return
	}

	b.visit(left)
	leftReg := b.current()
	b.visit(right)
	rightReg := b.current()
	b.emit(NewBinary(ops.reg, b.allocate(), leftReg, rightReg))
}

// visitLogical lowers && and || as short-circuit diamonds. The result
// register is written in both arms and normalized to 0/1.
func (b *Builder) visitLogical(n *ast.BinaryExpr) {
	b.visit(n.Left)
	cond := b.current()
	result := b.allocate()
	jump := b.emit(NewJumpConditional(cond, 0, 0))

	// Arm evaluated when the right-hand side decides the value.
	rhsLabel := Label(len(b.blocks))
	b.startBlock()
	b.visit(n.Right)
	rhs := b.current()
	normalized := b.allocate()
	b.emit(NewBinaryImmediate(NotEqualImmediate, normalized, rhs, 0))
	b.emit(NewMove(result, normalized))
	rhsJumpToEnd := b.emit(NewJump(0))

	// Arm taken when the left-hand side short-circuits.
	shortLabel := Label(len(b.blocks))
	b.startBlock()
	shortValue := Value(0)
	if n.Op == ast.LogicalOr {
		shortValue = 1
	}
	shortReg := b.allocate()
	b.emit(NewLoad(shortReg, shortValue))
	b.emit(NewMove(result, shortReg))

	endLabel := b.startBlock()
	b.at(rhsJumpToEnd).Label1 = endLabel
	if n.Op == ast.LogicalAnd {
		b.at(jump).Label1 = rhsLabel
		b.at(jump).Label2 = shortLabel
	} else {
		b.at(jump).Label1 = shortLabel
		b.at(jump).Label2 = rhsLabel
	}

	// Leave the merged result in the last-allocated register.
	final := b.allocate()
	b.emit(NewMove(final, result))
}

func (b *Builder) visitUnary(n *ast.UnaryExpr) {
	switch n.Op {
	case ast.Negate:
		b.visit(n.Operand)
		src := b.current()
		b.emit(NewNegate(b.allocate(), src))
	case ast.UnaryPlus:
		b.visit(n.Operand)
	case ast.LogicalNot:
		b.visit(n.Operand)
		src := b.current()
		b.emit(NewLogicalNot(b.allocate(), src))
	case ast.AddressOf:
		if ident, ok := n.Operand.(*ast.IdentExpr); ok {
			// Pointer to the variable's own slot: later writes to the
			// variable are observed through the pointer.
			b.emit(NewAddressOf(b.allocate(), b.vars[ident.Name]))
			return
		}
		// Pointer to a snapshot: the operand value lands in a register
		// nothing else ever writes.
		b.visit(n.Operand)
		src := b.current()
		b.emit(NewAddressOf(b.allocate(), src))
	case ast.Dereference:
		b.visit(n.Operand)
		src := b.current()
		b.emit(NewLoadIndirect(b.allocate(), src))
	}
}

func (b *Builder) visitFunctionDecl(n *ast.FunctionDecl) {
	jumpOver := b.emit(NewJump(0))

	entry := Label(len(b.blocks))
	b.functions[n.Name] = entry

	params := make([]Register, len(n.Params))
	bodyVars := make(map[string]Register, len(n.Params))
	for i, param := range n.Params {
		params[i] = b.allocate()
		bodyVars[param] = params[i]
	}
	b.functionParams[n.Name] = params

	if pending, ok := b.pendingCalls[n.Name]; ok {
		for _, ref := range pending {
			call := b.at(ref)
			call.Label1 = entry
			call.Params = params
		}
		delete(b.pendingCalls, n.Name)
	}

	// The body sees parameters only; the caller's variables come back
	// once the declaration is done.
	outerVars := b.vars
	b.vars = bodyVars
	b.visitBlock(n.Body)
	if !b.currentBlock().HasTerminator() {
		reg := b.allocate()
		b.emit(NewLoad(reg, 0))
		b.emit(NewReturn(reg))
	}
	b.vars = outerVars

	after := b.startBlock()
	b.at(jumpOver).Label1 = after
}

func (b *Builder) visitCall(n *ast.CallExpr) {
	args := make([]Register, 0, len(n.Args))
	for _, arg := range n.Args {
		b.visit(arg)
		args = append(args, b.current())
	}

	dst := b.allocate()
	ref := b.emit(NewCall(dst, 0, args, nil))
	if entry, ok := b.functions[n.Callee]; ok {
		call := b.at(ref)
		call.Label1 = entry
		call.Params = b.functionParams[n.Callee]
	} else {
		b.pendingCalls[n.Callee] = append(b.pendingCalls[n.Callee], ref)
	}
}
