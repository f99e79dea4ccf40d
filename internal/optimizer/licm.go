package optimizer

import "mica/internal/ir"

// LoopInvariantCodeMotion hoists pure computations out of natural loops.
// A loop is any back edge (branch target at or before its own block);
// the pre-header is the block just before the loop header. An
// instruction is hoisted when it is pure, its destination has exactly
// one definition inside the loop, and none of its sources are defined
// inside the loop. Hoisting repeats to a fixed point per loop since one
// hoist can make another instruction's sources loop-free.
func LoopInvariantCodeMotion(blocks []ir.Block) {
	type loop struct {
		header int
		tail   int
	}

	var loops []loop
	for i := range blocks {
		block := &blocks[i]
		if len(block.Instructions) == 0 {
			continue
		}
		last := &block.Instructions[len(block.Instructions)-1]
		last.EachBranchLabelPtr(func(label *ir.Label) {
			if int(*label) <= i {
				loops = append(loops, loop{header: int(*label), tail: i})
			}
		})
	}

	for _, l := range loops {
		if l.header == 0 {
			continue // no pre-header exists
		}
		preHeader := &blocks[l.header-1]

		defCount := map[ir.Register]int{}
		for b := l.header; b <= l.tail; b++ {
			for i := range blocks[b].Instructions {
				if dst, ok := blocks[b].Instructions[i].DstReg(); ok {
					defCount[dst]++
				}
			}
		}

		for {
			hoisted := false
			for b := l.header; b <= l.tail && !hoisted; b++ {
				block := &blocks[b]
				for i := 0; i < len(block.Instructions); i++ {
					instr := block.Instructions[i]
					if !hoistable(&instr, defCount) {
						continue
					}

					block.Instructions = append(block.Instructions[:i],
						block.Instructions[i+1:]...)
					if dst, ok := instr.DstReg(); ok {
						defCount[dst]--
						if defCount[dst] == 0 {
							delete(defCount, dst)
						}
					}
					insertBeforeTerminator(preHeader, instr)

					hoisted = true
					break
				}
			}
			if !hoisted {
				break
			}
		}
	}
}

func hoistable(instr *ir.Instruction, defCount map[ir.Register]int) bool {
	if !instr.IsHoistable() {
		return false
	}
	dst, ok := instr.DstReg()
	if !ok || defCount[dst] != 1 {
		return false
	}
	invariant := true
	instr.EachUse(func(src ir.Register) {
		if defCount[src] > 0 {
			invariant = false
		}
	})
	return invariant
}

func insertBeforeTerminator(block *ir.Block, instr ir.Instruction) {
	at := len(block.Instructions)
	if at > 0 && block.Instructions[at-1].Op.IsTerminator() {
		at--
	}
	block.Instructions = append(block.Instructions, ir.Instruction{})
	copy(block.Instructions[at+1:], block.Instructions[at:])
	block.Instructions[at] = instr
}
