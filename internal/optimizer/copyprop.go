package optimizer

import (
	"maps"

	"mica/internal/ir"
)

// CopyPropagation is a forward dataflow pass. Facts map a register to
// the register or constant it currently mirrors; the meet over
// predecessors keeps only facts identical on every initialized
// incoming path. After the fixed point, each block is rewritten against
// its entry facts: source operands are chased through alias chains,
// branches on known constants collapse to plain jumps, and trivial
// self-moves disappear.
//
// AddressOf never has its source substituted: the pointer must alias
// the original register, not whatever register happens to hold an equal
// value.
func CopyPropagation(blocks []ir.Block) {
	successors := buildSuccessors(blocks)
	predecessors := buildPredecessors(successors)

	inStates := make([]factMap, len(blocks))
	outStates := make([]factMap, len(blocks))
	outInitialized := make([]bool, len(blocks))

	worklist := make([]int, 0, len(blocks))
	queued := make([]bool, len(blocks))
	for i := range blocks {
		worklist = append(worklist, i)
		queued[i] = true
	}

	for len(worklist) > 0 {
		blockIndex := worklist[0]
		worklist = worklist[1:]
		queued[blockIndex] = false

		inState := meetPredecessors(blockIndex, predecessors, outStates, outInitialized)
		outState := maps.Clone(inState)

		for i := range blocks[blockIndex].Instructions {
			transfer(&blocks[blockIndex].Instructions[i], outState)
		}

		if maps.Equal(inState, inStates[blockIndex]) &&
			maps.Equal(outState, outStates[blockIndex]) &&
			outInitialized[blockIndex] {
			continue
		}

		inStates[blockIndex] = inState
		outStates[blockIndex] = outState
		outInitialized[blockIndex] = true

		for _, succ := range successors[blockIndex] {
			if !queued[succ] {
				worklist = append(worklist, succ)
				queued[succ] = true
			}
		}
	}

	for i := range blocks {
		facts := maps.Clone(inStates[i])
		if facts == nil {
			facts = factMap{}
		}
		entryFacts := maps.Clone(facts)
		for j := range blocks[i].Instructions {
			rewriteInstruction(&blocks[i].Instructions[j], facts, entryFacts)
		}

		kept := blocks[i].Instructions[:0]
		for _, instr := range blocks[i].Instructions {
			if instr.Op == ir.Move && instr.Dst == instr.Src1 {
				continue
			}
			kept = append(kept, instr)
		}
		blocks[i].Instructions = kept
	}
}

// fact is one propagated binding: either "dst mirrors reg" or "dst holds
// the constant value".
type fact struct {
	isConstant bool
	reg        ir.Register
	value      ir.Value
}

type factMap = map[ir.Register]fact

func registerFact(reg ir.Register) fact {
	return fact{reg: reg}
}

func constantFact(value ir.Value) fact {
	return fact{isConstant: true, value: value}
}

// resolveValue chases the alias chain from reg, yielding a constant if
// the chain ends in one. Cycles fall back to the last register seen.
func resolveValue(reg ir.Register, facts factMap) (constant bool, out ir.Register, value ir.Value) {
	visited := map[ir.Register]struct{}{}
	current := reg
	for {
		f, ok := facts[current]
		if !ok {
			return false, current, 0
		}
		if f.isConstant {
			return true, 0, f.value
		}
		if _, seen := visited[current]; seen {
			return false, current, 0
		}
		visited[current] = struct{}{}
		if _, seen := visited[f.reg]; seen {
			return false, current, 0
		}
		current = f.reg
	}
}

// resolveAlias chases register aliases to the nearest non-aliased
// register, stopping before constants.
func resolveAlias(reg ir.Register, facts factMap) ir.Register {
	visited := map[ir.Register]struct{}{}
	current := reg
	for {
		f, ok := facts[current]
		if !ok || f.isConstant {
			return current
		}
		if _, seen := visited[current]; seen {
			return current
		}
		visited[current] = struct{}{}
		if _, seen := visited[f.reg]; seen {
			return current
		}
		current = f.reg
	}
}

// invalidate drops dst's fact and, transitively, every fact that aliases
// an invalidated register.
func invalidate(facts factMap, dst ir.Register) {
	invalidated := map[ir.Register]struct{}{dst: {}}
	for {
		changed := false
		for reg, f := range facts {
			_, direct := invalidated[reg]
			aliasGone := false
			if !f.isConstant {
				_, aliasGone = invalidated[f.reg]
			}
			if !direct && !aliasGone {
				continue
			}
			if _, seen := invalidated[reg]; !seen {
				invalidated[reg] = struct{}{}
				changed = true
			}
			delete(facts, reg)
		}
		if !changed {
			return
		}
	}
}

func setRegisterFact(facts factMap, dst, src ir.Register) {
	if dst == src {
		return
	}
	invalidate(facts, dst)
	facts[dst] = registerFact(src)
}

func setConstantFact(facts factMap, dst ir.Register, value ir.Value) {
	invalidate(facts, dst)
	facts[dst] = constantFact(value)
}

// transfer applies one instruction's effect to the fact state without
// rewriting anything.
func transfer(instr *ir.Instruction, facts factMap) {
	switch instr.Op {
	case ir.Move:
		setRegisterFact(facts, instr.Dst, instr.Src1)
	case ir.Load:
		setConstantFact(facts, instr.Dst, instr.Imm)
	default:
		if dst, ok := instr.DstReg(); ok {
			invalidate(facts, dst)
		}
	}
}

func meetPredecessors(blockIndex int, predecessors [][]int,
	outStates []factMap, outInitialized []bool) factMap {
	if len(predecessors[blockIndex]) == 0 {
		return factMap{}
	}

	var inState factMap
	for _, pred := range predecessors[blockIndex] {
		if !outInitialized[pred] {
			continue
		}
		if inState == nil {
			inState = maps.Clone(outStates[pred])
			continue
		}
		predState := outStates[pred]
		for reg, f := range inState {
			if other, ok := predState[reg]; !ok || other != f {
				delete(inState, reg)
			}
		}
	}

	if inState == nil {
		return factMap{}
	}
	return inState
}

func rewriteInstruction(instr *ir.Instruction, facts, entryFacts factMap) {
	resolve := func(reg ir.Register) ir.Register {
		return resolveAlias(reg, facts)
	}

	switch instr.Op {
	case ir.Move:
		originalSrc := instr.Src1
		instr.Src1 = resolve(instr.Src1)
		setRegisterFact(facts, instr.Dst, originalSrc)

	case ir.Load:
		setConstantFact(facts, instr.Dst, instr.Imm)

	case ir.Jump:

	case ir.JumpConditional:
		if constant, _, value := resolveValue(instr.Src1, facts); constant {
			target := instr.Label2
			if value != 0 {
				target = instr.Label1
			}
			*instr = ir.NewJump(target)
			return
		}
		instr.Src1 = resolve(instr.Src1)

	case ir.JumpEqualImmediate:
		if constant, _, value := resolveValue(instr.Src1, facts); constant {
			target := instr.Label2
			if value == instr.Imm {
				target = instr.Label1
			}
			*instr = ir.NewJump(target)
			return
		}
		instr.Src1 = resolve(instr.Src1)

	case ir.JumpGreaterThanImmediate:
		if constant, _, value := resolveValue(instr.Src1, facts); constant {
			target := instr.Label2
			if value > instr.Imm {
				target = instr.Label1
			}
			*instr = ir.NewJump(target)
			return
		}
		instr.Src1 = resolve(instr.Src1)

	case ir.JumpLessThanOrEqual:
		lhsConst, _, lhsValue := resolveValue(instr.Src1, facts)
		rhsConst, _, rhsValue := resolveValue(instr.Src2, facts)
		if lhsConst && rhsConst {
			target := instr.Label2
			if lhsValue <= rhsValue {
				target = instr.Label1
			}
			*instr = ir.NewJump(target)
			return
		}
		if !lhsConst {
			instr.Src1 = resolve(instr.Src1)
		}
		if !rhsConst {
			instr.Src2 = resolve(instr.Src2)
		}

	case ir.Return:
		entryResolved := resolveAlias(instr.Src1, entryFacts)
		currentResolved := resolve(instr.Src1)
		if currentResolved != entryResolved {
			instr.Src1 = currentResolved
		}

	case ir.AddressOf:
		// Source identity is the whole point of the instruction.
		invalidate(facts, instr.Dst)

	default:
		instr.RewriteSources(resolve)
		if dst, ok := instr.DstReg(); ok {
			invalidate(facts, dst)
		}
	}
}
