package optimizer

import "mica/internal/ir"

// buildSuccessors computes block-to-block control flow edges: branch
// targets of the first terminator, or fallthrough when a block has none.
// Call targets are not successors; the callee returns to the same block.
func buildSuccessors(blocks []ir.Block) [][]int {
	successors := make([][]int, len(blocks))

	addSuccessor := func(from int, label ir.Label) {
		if int(label) >= len(blocks) {
			return
		}
		for _, existing := range successors[from] {
			if existing == int(label) {
				return
			}
		}
		successors[from] = append(successors[from], int(label))
	}

	for i := range blocks {
		foundTerminator := false
		for j := range blocks[i].Instructions {
			instr := &blocks[i].Instructions[j]
			if !instr.Op.IsTerminator() {
				continue
			}
			instr.EachBranchLabelPtr(func(label *ir.Label) {
				addSuccessor(i, *label)
			})
			foundTerminator = true
			break
		}
		if !foundTerminator && i+1 < len(blocks) {
			successors[i] = append(successors[i], i+1)
		}
	}

	return successors
}

func buildPredecessors(successors [][]int) [][]int {
	predecessors := make([][]int, len(successors))
	for from, succs := range successors {
		for _, to := range succs {
			predecessors[to] = append(predecessors[to], from)
		}
	}
	return predecessors
}

// useCounts tallies how many times each register is read as a source
// operand across the whole program.
func useCounts(blocks []ir.Block) map[ir.Register]int {
	counts := map[ir.Register]int{}
	for i := range blocks {
		for j := range blocks[i].Instructions {
			blocks[i].Instructions[j].EachUse(func(reg ir.Register) {
				counts[reg]++
			})
		}
	}
	return counts
}
