package optimizer

import "mica/internal/ir"

// DeadCodeElimination removes instructions whose destination register is
// never read anywhere in the program. Control flow and side-effecting
// instructions always survive, and any register whose address is taken
// is pinned: its value may be observed through a pointer even when no
// instruction reads it directly. Removal can expose newly dead chains,
// so the sweep repeats until nothing changes; a second invocation is a
// no-op.
func DeadCodeElimination(blocks []ir.Block) {
	for sweep(blocks) {
	}
}

func sweep(blocks []ir.Block) bool {
	live := map[ir.Register]struct{}{}
	addressTaken := map[ir.Register]struct{}{}

	for i := range blocks {
		for j := range blocks[i].Instructions {
			instr := &blocks[i].Instructions[j]
			instr.EachUse(func(reg ir.Register) {
				live[reg] = struct{}{}
			})
			if instr.Op == ir.AddressOf {
				addressTaken[instr.Src1] = struct{}{}
			}
		}
	}

	removed := false
	for i := range blocks {
		kept := blocks[i].Instructions[:0]
		for _, instr := range blocks[i].Instructions {
			if keepInstruction(&instr, live, addressTaken) {
				kept = append(kept, instr)
			} else {
				removed = true
			}
		}
		blocks[i].Instructions = kept
	}
	return removed
}

func keepInstruction(instr *ir.Instruction,
	live, addressTaken map[ir.Register]struct{}) bool {
	switch instr.Op {
	case ir.Jump, ir.JumpConditional, ir.JumpEqualImmediate,
		ir.JumpGreaterThanImmediate, ir.JumpLessThanOrEqual,
		ir.Return, ir.Call, ir.TailCall, ir.ArrayStore:
		return true
	}
	dst, ok := instr.DstReg()
	if !ok {
		return true
	}
	if _, pinned := addressTaken[dst]; pinned {
		return true
	}
	_, read := live[dst]
	return read
}
