package ir

import (
	"fmt"
	"strings"
)

// String renders one instruction in the dump form used by --dump.
func (in *Instruction) String() string {
	switch in.Op {
	case Move, Negate, LogicalNot, AddressOf, LoadIndirect:
		return fmt.Sprintf("%s r%d, r%d", in.Op, in.Dst, in.Src1)
	case Load:
		return fmt.Sprintf("Load r%d, %d", in.Dst, in.Imm)
	case Add, Subtract, Multiply, Divide, Modulo,
		LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual,
		Equal, NotEqual, ArrayLoad:
		return fmt.Sprintf("%s r%d, r%d, r%d", in.Op, in.Dst, in.Src1, in.Src2)
	case AddImmediate, SubtractImmediate, MultiplyImmediate, DivideImmediate,
		ModuloImmediate, LessThanImmediate, GreaterThanImmediate,
		LessThanOrEqualImmediate, GreaterThanOrEqualImmediate,
		EqualImmediate, NotEqualImmediate, ArrayLoadImmediate:
		return fmt.Sprintf("%s r%d, r%d, %d", in.Op, in.Dst, in.Src1, in.Imm)
	case Jump:
		return fmt.Sprintf("Jump @%d", in.Label1)
	case JumpConditional:
		return fmt.Sprintf("JumpConditional r%d, @%d, @%d", in.Src1, in.Label1, in.Label2)
	case JumpEqualImmediate, JumpGreaterThanImmediate:
		return fmt.Sprintf("%s r%d, %d, @%d, @%d",
			in.Op, in.Src1, in.Imm, in.Label1, in.Label2)
	case JumpLessThanOrEqual:
		return fmt.Sprintf("JumpLessThanOrEqual r%d, r%d, @%d, @%d",
			in.Src1, in.Src2, in.Label1, in.Label2)
	case Call:
		return fmt.Sprintf("Call r%d, @%d, %s, %s",
			in.Dst, in.Label1, regList(in.Args), regList(in.Params))
	case TailCall:
		return fmt.Sprintf("TailCall @%d, %s, %s",
			in.Label1, regList(in.Args), regList(in.Params))
	case Return:
		return fmt.Sprintf("Return r%d", in.Src1)
	case ArrayCreate:
		return fmt.Sprintf("ArrayCreate r%d, %s", in.Dst, regList(in.Elems))
	case ArrayLiteralCreate:
		return fmt.Sprintf("ArrayLiteralCreate r%d, %s", in.Dst, valueList(in.Values))
	case ArrayStore:
		return fmt.Sprintf("ArrayStore r%d, r%d, r%d", in.Src1, in.Src2, in.Src3)
	case StructCreate:
		parts := make([]string, len(in.Fields))
		for i, field := range in.Fields {
			parts[i] = fmt.Sprintf("%s: r%d", field.Name, field.Reg)
		}
		return fmt.Sprintf("StructCreate r%d, {%s}", in.Dst, strings.Join(parts, ", "))
	case StructLiteralCreate:
		parts := make([]string, len(in.FieldValues))
		for i, field := range in.FieldValues {
			parts[i] = fmt.Sprintf("%s: %d", field.Name, field.Value)
		}
		return fmt.Sprintf("StructLiteralCreate r%d, {%s}", in.Dst, strings.Join(parts, ", "))
	case StructLoad:
		return fmt.Sprintf("StructLoad r%d, r%d, %s", in.Dst, in.Src1, in.Field)
	}
	return in.Op.String()
}

func regList(regs []Register) string {
	parts := make([]string, len(regs))
	for i, reg := range regs {
		parts[i] = fmt.Sprintf("r%d", reg)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func valueList(values []Value) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = fmt.Sprintf("%d", value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Dump renders a block vector: an `@label:` line per block followed by
// its instructions, one indented line each.
func Dump(blocks []Block) string {
	var sb strings.Builder
	for i, block := range blocks {
		fmt.Fprintf(&sb, "@%d:\n", i)
		for j := range block.Instructions {
			fmt.Fprintf(&sb, "  %s\n", &block.Instructions[j])
		}
	}
	return sb.String()
}
