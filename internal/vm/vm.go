// Package vm executes the block vector on a register machine with a
// flat register stack and explicit call frames.
package vm

import (
	"mica/internal/errors"
	"mica/internal/ir"
)

// callFrame records where execution resumes when the callee returns and
// which caller register receives the result.
type callFrame struct {
	returnBlock uint64
	returnInstr int
	dstRegister ir.Register
	frameBase   int
}

// Interpreter runs one program at a time. An instance may be reused;
// all mutable state is reset on entry to Interpret.
type Interpreter struct {
	blockIndex uint64
	instrIndex int

	callStack     []callFrame
	registerStack []ir.Value
	frameBase     int
	registerCount int

	arrays     map[ir.Value][]ir.Value
	structs    map[ir.Value]map[string]ir.Value
	pointers   map[ir.Value]int
	nextHeapID ir.Value
}

func New() *Interpreter {
	return &Interpreter{}
}

// Interpret executes the blocks from block 0 and returns the value of
// the Return executed at the outermost frame.
func (vm *Interpreter) Interpret(blocks []ir.Block) (ir.Value, error) {
	vm.blockIndex = 0
	vm.instrIndex = 0
	vm.callStack = vm.callStack[:0]
	vm.frameBase = 0
	vm.arrays = map[ir.Value][]ir.Value{}
	vm.structs = map[ir.Value]map[string]ir.Value{}
	vm.pointers = map[ir.Value]int{}
	vm.nextHeapID = 1

	vm.registerCount = registerCount(blocks)
	vm.registerStack = make([]ir.Value, vm.registerCount)

	for {
		if vm.blockIndex >= uint64(len(blocks)) {
			return 0, &errors.RuntimeError{
				Kind: errors.InvalidCallTarget, Target: vm.blockIndex,
			}
		}
		block := &blocks[vm.blockIndex]
		if vm.instrIndex >= len(block.Instructions) {
			return 0, &errors.RuntimeError{
				Kind: errors.InvalidCallTarget, Target: vm.blockIndex,
			}
		}
		instr := &block.Instructions[vm.instrIndex]

		switch instr.Op {
		case ir.Move:
			vm.set(instr.Dst, vm.get(instr.Src1))
			vm.instrIndex++

		case ir.Load:
			vm.set(instr.Dst, instr.Imm)
			vm.instrIndex++

		case ir.Add:
			vm.set(instr.Dst, vm.get(instr.Src1)+vm.get(instr.Src2))
			vm.instrIndex++
		case ir.AddImmediate:
			vm.set(instr.Dst, vm.get(instr.Src1)+instr.Imm)
			vm.instrIndex++
		case ir.Subtract:
			vm.set(instr.Dst, vm.get(instr.Src1)-vm.get(instr.Src2))
			vm.instrIndex++
		case ir.SubtractImmediate:
			vm.set(instr.Dst, vm.get(instr.Src1)-instr.Imm)
			vm.instrIndex++
		case ir.Multiply:
			vm.set(instr.Dst, vm.get(instr.Src1)*vm.get(instr.Src2))
			vm.instrIndex++
		case ir.MultiplyImmediate:
			vm.set(instr.Dst, vm.get(instr.Src1)*instr.Imm)
			vm.instrIndex++
		case ir.Divide:
			divisor := vm.get(instr.Src2)
			if divisor == 0 {
				return 0, &errors.RuntimeError{Kind: errors.DivisionByZero}
			}
			vm.set(instr.Dst, vm.get(instr.Src1)/divisor)
			vm.instrIndex++
		case ir.DivideImmediate:
			if instr.Imm == 0 {
				return 0, &errors.RuntimeError{Kind: errors.DivisionByZero}
			}
			vm.set(instr.Dst, vm.get(instr.Src1)/instr.Imm)
			vm.instrIndex++
		case ir.Modulo:
			divisor := vm.get(instr.Src2)
			if divisor == 0 {
				return 0, &errors.RuntimeError{Kind: errors.DivisionByZero}
			}
			vm.set(instr.Dst, vm.get(instr.Src1)%divisor)
			vm.instrIndex++
		case ir.ModuloImmediate:
			if instr.Imm == 0 {
				return 0, &errors.RuntimeError{Kind: errors.DivisionByZero}
			}
			vm.set(instr.Dst, vm.get(instr.Src1)%instr.Imm)
			vm.instrIndex++

		case ir.LessThan:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) < vm.get(instr.Src2)))
			vm.instrIndex++
		case ir.LessThanImmediate:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) < instr.Imm))
			vm.instrIndex++
		case ir.GreaterThan:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) > vm.get(instr.Src2)))
			vm.instrIndex++
		case ir.GreaterThanImmediate:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) > instr.Imm))
			vm.instrIndex++
		case ir.LessThanOrEqual:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) <= vm.get(instr.Src2)))
			vm.instrIndex++
		case ir.LessThanOrEqualImmediate:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) <= instr.Imm))
			vm.instrIndex++
		case ir.GreaterThanOrEqual:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) >= vm.get(instr.Src2)))
			vm.instrIndex++
		case ir.GreaterThanOrEqualImmediate:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) >= instr.Imm))
			vm.instrIndex++
		case ir.Equal:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) == vm.get(instr.Src2)))
			vm.instrIndex++
		case ir.EqualImmediate:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) == instr.Imm))
			vm.instrIndex++
		case ir.NotEqual:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) != vm.get(instr.Src2)))
			vm.instrIndex++
		case ir.NotEqualImmediate:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) != instr.Imm))
			vm.instrIndex++

		case ir.Negate:
			vm.set(instr.Dst, -vm.get(instr.Src1))
			vm.instrIndex++
		case ir.LogicalNot:
			vm.set(instr.Dst, boolValue(vm.get(instr.Src1) == 0))
			vm.instrIndex++

		case ir.Jump:
			vm.jump(instr.Label1)
		case ir.JumpConditional:
			if vm.get(instr.Src1) != 0 {
				vm.jump(instr.Label1)
			} else {
				vm.jump(instr.Label2)
			}
		case ir.JumpEqualImmediate:
			if vm.get(instr.Src1) == instr.Imm {
				vm.jump(instr.Label1)
			} else {
				vm.jump(instr.Label2)
			}
		case ir.JumpGreaterThanImmediate:
			if vm.get(instr.Src1) > instr.Imm {
				vm.jump(instr.Label1)
			} else {
				vm.jump(instr.Label2)
			}
		case ir.JumpLessThanOrEqual:
			if vm.get(instr.Src1) <= vm.get(instr.Src2) {
				vm.jump(instr.Label1)
			} else {
				vm.jump(instr.Label2)
			}

		case ir.Call:
			if err := vm.call(instr, uint64(len(blocks))); err != nil {
				return 0, err
			}

		case ir.TailCall:
			if err := vm.tailCall(instr, uint64(len(blocks))); err != nil {
				return 0, err
			}

		case ir.Return:
			value := vm.get(instr.Src1)
			if len(vm.callStack) == 0 {
				return value, nil
			}
			frame := vm.callStack[len(vm.callStack)-1]
			vm.callStack = vm.callStack[:len(vm.callStack)-1]
			vm.frameBase = frame.frameBase
			vm.set(frame.dstRegister, value)
			vm.blockIndex = frame.returnBlock
			vm.instrIndex = frame.returnInstr

		case ir.ArrayCreate:
			elems := make([]ir.Value, len(instr.Elems))
			for i, reg := range instr.Elems {
				elems[i] = vm.get(reg)
			}
			id := vm.allocID()
			vm.arrays[id] = elems
			vm.set(instr.Dst, id)
			vm.instrIndex++

		case ir.ArrayLiteralCreate:
			elems := make([]ir.Value, len(instr.Values))
			copy(elems, instr.Values)
			id := vm.allocID()
			vm.arrays[id] = elems
			vm.set(instr.Dst, id)
			vm.instrIndex++

		case ir.ArrayLoad:
			value, err := vm.arrayLoad(vm.get(instr.Src1), vm.get(instr.Src2))
			if err != nil {
				return 0, err
			}
			vm.set(instr.Dst, value)
			vm.instrIndex++

		case ir.ArrayLoadImmediate:
			value, err := vm.arrayLoad(vm.get(instr.Src1), instr.Imm)
			if err != nil {
				return 0, err
			}
			vm.set(instr.Dst, value)
			vm.instrIndex++

		case ir.ArrayStore:
			handle := vm.get(instr.Src1)
			array, ok := vm.arrays[handle]
			if !ok {
				return 0, &errors.RuntimeError{Kind: errors.UnknownArray, Handle: uint64(handle)}
			}
			index := vm.get(instr.Src2)
			if uint64(index) >= uint64(len(array)) {
				return 0, &errors.RuntimeError{
					Kind: errors.IndexOutOfRange, Index: uint64(index), Length: len(array),
				}
			}
			array[index] = vm.get(instr.Src3)
			vm.instrIndex++

		case ir.StructCreate:
			fields := make(map[string]ir.Value, len(instr.Fields))
			for _, field := range instr.Fields {
				fields[field.Name] = vm.get(field.Reg)
			}
			id := vm.allocID()
			vm.structs[id] = fields
			vm.set(instr.Dst, id)
			vm.instrIndex++

		case ir.StructLiteralCreate:
			fields := make(map[string]ir.Value, len(instr.FieldValues))
			for _, field := range instr.FieldValues {
				fields[field.Name] = field.Value
			}
			id := vm.allocID()
			vm.structs[id] = fields
			vm.set(instr.Dst, id)
			vm.instrIndex++

		case ir.StructLoad:
			handle := vm.get(instr.Src1)
			fields, ok := vm.structs[handle]
			if !ok {
				return 0, &errors.RuntimeError{Kind: errors.UnknownStruct, Handle: uint64(handle)}
			}
			value, ok := fields[instr.Field]
			if !ok {
				return 0, &errors.RuntimeError{
					Kind: errors.MissingField, Handle: uint64(handle), Field: instr.Field,
				}
			}
			vm.set(instr.Dst, value)
			vm.instrIndex++

		case ir.AddressOf:
			// Each evaluation mints a fresh pointer id; pointer equality
			// compares handles, never pointees.
			id := vm.allocID()
			vm.pointers[id] = vm.frameBase + int(instr.Src1)
			vm.set(instr.Dst, id)
			vm.instrIndex++

		case ir.LoadIndirect:
			handle := vm.get(instr.Src1)
			slot, ok := vm.pointers[handle]
			if !ok {
				return 0, &errors.RuntimeError{Kind: errors.UnknownPointer, Handle: uint64(handle)}
			}
			vm.set(instr.Dst, vm.registerStack[slot])
			vm.instrIndex++
		}
	}
}

func (vm *Interpreter) get(reg ir.Register) ir.Value {
	return vm.registerStack[vm.frameBase+int(reg)]
}

func (vm *Interpreter) set(reg ir.Register, value ir.Value) {
	vm.registerStack[vm.frameBase+int(reg)] = value
}

func (vm *Interpreter) jump(label ir.Label) {
	vm.blockIndex = uint64(label)
	vm.instrIndex = 0
}

func (vm *Interpreter) allocID() ir.Value {
	id := vm.nextHeapID
	vm.nextHeapID++
	return id
}

func (vm *Interpreter) call(instr *ir.Instruction, blockCount uint64) error {
	if uint64(instr.Label1) >= blockCount {
		return &errors.RuntimeError{
			Kind: errors.InvalidCallTarget, Target: uint64(instr.Label1),
		}
	}

	args := make([]ir.Value, len(instr.Args))
	for i, reg := range instr.Args {
		args[i] = vm.get(reg)
	}

	vm.callStack = append(vm.callStack, callFrame{
		returnBlock: vm.blockIndex,
		returnInstr: vm.instrIndex + 1,
		dstRegister: instr.Dst,
		frameBase:   vm.frameBase,
	})

	vm.frameBase += vm.registerCount
	vm.growStack()
	for i, param := range instr.Params {
		if i < len(args) {
			vm.set(param, args[i])
		}
	}

	vm.jump(instr.Label1)
	return nil
}

func (vm *Interpreter) tailCall(instr *ir.Instruction, blockCount uint64) error {
	if uint64(instr.Label1) >= blockCount {
		return &errors.RuntimeError{
			Kind: errors.InvalidCallTarget, Target: uint64(instr.Label1),
		}
	}

	// Read all argument values before writing any parameter slot: the
	// frame is reused, so sources and targets may overlap.
	args := make([]ir.Value, len(instr.Args))
	for i, reg := range instr.Args {
		args[i] = vm.get(reg)
	}
	for i, param := range instr.Params {
		if i < len(args) {
			vm.set(param, args[i])
		}
	}

	vm.jump(instr.Label1)
	return nil
}

func (vm *Interpreter) growStack() {
	needed := vm.frameBase + vm.registerCount
	for len(vm.registerStack) < needed {
		vm.registerStack = append(vm.registerStack, 0)
	}
}

func (vm *Interpreter) arrayLoad(handle, index ir.Value) (ir.Value, error) {
	array, ok := vm.arrays[handle]
	if !ok {
		return 0, &errors.RuntimeError{Kind: errors.UnknownArray, Handle: uint64(handle)}
	}
	if uint64(index) >= uint64(len(array)) {
		return 0, &errors.RuntimeError{
			Kind: errors.IndexOutOfRange, Index: uint64(index), Length: len(array),
		}
	}
	return array[index], nil
}

func boolValue(b bool) ir.Value {
	if b {
		return 1
	}
	return 0
}

// registerCount finds the frame width: one past the highest register any
// instruction references.
func registerCount(blocks []ir.Block) int {
	highest := ir.Register(0)
	seen := false
	for i := range blocks {
		for j := range blocks[i].Instructions {
			blocks[i].Instructions[j].EachRegPtr(func(reg *ir.Register) {
				if !seen || *reg > highest {
					highest = *reg
					seen = true
				}
			})
		}
	}
	if !seen {
		return 1
	}
	return int(highest) + 1
}
