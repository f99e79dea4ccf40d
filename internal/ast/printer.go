package ast

import (
	"fmt"
	"strings"
)

// String renders each node in a compact tree form. The CLI's --dump mode
// feeds the program block through Dump for the indented variant.

func (b *Block) String() string {
	parts := make([]string, len(b.Stmts))
	for i, stmt := range b.Stmts {
		parts[i] = stmt.String()
	}
	return "Block(" + strings.Join(parts, ", ") + ")"
}

func (l *LiteralExpr) String() string {
	return fmt.Sprintf("Literal(%d)", l.Value)
}

func (i *IdentExpr) String() string {
	return fmt.Sprintf("Variable(%s)", i.Name)
}

func (l *LetStmt) String() string {
	return fmt.Sprintf("Let(%s, %s)", l.Name, l.Init)
}

func (a *AssignExpr) String() string {
	return fmt.Sprintf("Assign(%s, %s)", a.Name, a.Value)
}

func (i *IncrementExpr) String() string {
	return fmt.Sprintf("Increment(%s)", i.Target.Name)
}

func (f *FunctionDecl) String() string {
	return fmt.Sprintf("Function(%s, [%s], %s)",
		f.Name, strings.Join(f.Params, ", "), f.Body)
}

func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("Call(%s, [%s])", c.Callee, strings.Join(args, ", "))
}

func (r *ReturnStmt) String() string {
	return fmt.Sprintf("Return(%s)", r.Value)
}

func (i *IfStmt) String() string {
	return fmt.Sprintf("IfElse(%s, %s, %s)", i.Cond, i.Then, i.Else)
}

func (w *WhileStmt) String() string {
	return fmt.Sprintf("While(%s, %s)", w.Cond, w.Body)
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("Binary(%s, %s, %s)", b.Op, b.Left, b.Right)
}

func (u *UnaryExpr) String() string {
	return fmt.Sprintf("Unary(%s, %s)", u.Op, u.Operand)
}

func (a *ArrayLiteralExpr) String() string {
	elems := make([]string, len(a.Elems))
	for i, elem := range a.Elems {
		elems[i] = elem.String()
	}
	return "ArrayLiteral([" + strings.Join(elems, ", ") + "])"
}

func (i *IndexExpr) String() string {
	return fmt.Sprintf("Index(%s, %s)", i.Target, i.Index)
}

func (i *IndexAssignExpr) String() string {
	return fmt.Sprintf("IndexAssign(%s, %s, %s)", i.Target, i.Index, i.Value)
}

func (s *StructLiteralExpr) String() string {
	fields := make([]string, len(s.Fields))
	for i, field := range s.Fields {
		fields[i] = fmt.Sprintf("%s: %s", field.Name, field.Value)
	}
	return "StructLiteral({" + strings.Join(fields, ", ") + "})"
}

func (f *FieldAccessExpr) String() string {
	return fmt.Sprintf("FieldAccess(%s, %s)", f.Target, f.Field)
}

// Dump renders a program block with one statement per line, indenting
// nested blocks. Used by the CLI's --ast --dump mode.
func Dump(block *Block) string {
	var sb strings.Builder
	dumpBlock(&sb, block, 0)
	return sb.String()
}

func dumpBlock(sb *strings.Builder, block *Block, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, stmt := range block.Stmts {
		switch node := stmt.(type) {
		case *IfStmt:
			fmt.Fprintf(sb, "%sIfElse %s\n", indent, node.Cond)
			dumpBlock(sb, node.Then, depth+1)
			if len(node.Else.Stmts) > 0 {
				fmt.Fprintf(sb, "%selse\n", indent)
				dumpBlock(sb, node.Else, depth+1)
			}
		case *WhileStmt:
			fmt.Fprintf(sb, "%sWhile %s\n", indent, node.Cond)
			dumpBlock(sb, node.Body, depth+1)
		case *FunctionDecl:
			fmt.Fprintf(sb, "%sFunction %s(%s)\n", indent, node.Name,
				strings.Join(node.Params, ", "))
			dumpBlock(sb, node.Body, depth+1)
		case *Block:
			dumpBlock(sb, node, depth+1)
		default:
			fmt.Fprintf(sb, "%s%s\n", indent, stmt)
		}
	}
}
