package optimizer

import "mica/internal/ir"

// CFGCleanup tightens the block graph in three ordered steps: trim dead
// instructions after each block's first terminator, skip jump-only
// trampoline blocks by retargeting the branches into them, then prune
// blocks unreachable from the entry and renumber labels densely.
func CFGCleanup(blocks []ir.Block) []ir.Block {
	for i := range blocks {
		for j := range blocks[i].Instructions {
			if blocks[i].Instructions[j].Op.IsTerminator() {
				blocks[i].Instructions = blocks[i].Instructions[:j+1]
				break
			}
		}
	}

	if len(blocks) == 0 {
		return blocks
	}

	resolveJumpTarget := func(label ir.Label) ir.Label {
		if int(label) >= len(blocks) {
			return label
		}
		original := label
		visited := map[ir.Label]struct{}{}
		current := label
		for int(current) < len(blocks) && isJumpOnlyBlock(&blocks[current]) {
			next := blocks[current].Instructions[0].Label1
			if next == current {
				return current
			}
			if _, seen := visited[current]; seen {
				return original
			}
			visited[current] = struct{}{}
			if _, seen := visited[next]; seen {
				return original
			}
			current = next
		}
		return current
	}

	for i := range blocks {
		for j := range blocks[i].Instructions {
			blocks[i].Instructions[j].EachBranchLabelPtr(func(label *ir.Label) {
				*label = resolveJumpTarget(*label)
			})
		}
	}

	// Reachability from the entry block, following branches and call
	// entries alike.
	keep := make([]bool, len(blocks))
	worklist := []ir.Label{0}
	for len(worklist) > 0 {
		label := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if int(label) >= len(blocks) || keep[label] {
			continue
		}
		keep[label] = true
		for j := range blocks[label].Instructions {
			blocks[label].Instructions[j].EachLabelPtr(func(target *ir.Label) {
				if int(*target) < len(blocks) {
					worklist = append(worklist, *target)
				}
			})
		}
	}

	removedAny := false
	for _, kept := range keep {
		if !kept {
			removedAny = true
			break
		}
	}
	if !removedAny {
		return blocks
	}

	oldToNew := make([]ir.Label, len(blocks))
	remapped := make([]ir.Block, 0, len(blocks))
	for i := range blocks {
		if !keep[i] {
			continue
		}
		oldToNew[i] = ir.Label(len(remapped))
		remapped = append(remapped, blocks[i])
	}

	for i := range remapped {
		for j := range remapped[i].Instructions {
			remapped[i].Instructions[j].EachLabelPtr(func(label *ir.Label) {
				if int(*label) < len(oldToNew) && keep[*label] {
					*label = oldToNew[*label]
				}
			})
		}
	}

	return remapped
}

func isJumpOnlyBlock(block *ir.Block) bool {
	return len(block.Instructions) == 1 && block.Instructions[0].Op == ir.Jump
}
