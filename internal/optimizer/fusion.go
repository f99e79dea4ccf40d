package optimizer

import "mica/internal/ir"

// FuseCompareBranches merges a comparison with the conditional branch
// that consumes it into one fused instruction, when the comparison's
// destination is used exactly once in the whole program (by that
// branch). Covered pairs: EqualImmediate, GreaterThanImmediate, and the
// register-register LessThanOrEqual.
func FuseCompareBranches(blocks []ir.Block) {
	counts := useCounts(blocks)

	for b := range blocks {
		instrs := blocks[b].Instructions
		i := 0
		for i+1 < len(instrs) {
			jump := &instrs[i+1]
			if jump.Op != ir.JumpConditional {
				i++
				continue
			}
			if counts[jump.Src1] != 1 {
				i++
				continue
			}

			compare := &instrs[i]
			var fused ir.Instruction
			ok := false
			switch compare.Op {
			case ir.EqualImmediate:
				if compare.Dst == jump.Src1 {
					fused = ir.NewJumpEqualImmediate(
						compare.Src1, compare.Imm, jump.Label1, jump.Label2)
					ok = true
				}
			case ir.GreaterThanImmediate:
				if compare.Dst == jump.Src1 {
					fused = ir.NewJumpGreaterThanImmediate(
						compare.Src1, compare.Imm, jump.Label1, jump.Label2)
					ok = true
				}
			case ir.LessThanOrEqual:
				if compare.Dst == jump.Src1 {
					fused = ir.NewJumpLessThanOrEqual(
						compare.Src1, compare.Src2, jump.Label1, jump.Label2)
					ok = true
				}
			}

			if !ok {
				i++
				continue
			}

			instrs[i] = fused
			instrs = append(instrs[:i+1], instrs[i+2:]...)
			i++
		}
		blocks[b].Instructions = instrs
	}
}
