package optimizer

import "mica/internal/ir"

// Peephole collapses a pure producer writing a temporary followed by a
// Move of that temporary into a single instruction targeting the Move's
// destination. The temporary must be read exactly once in the whole
// program (by that Move). The index is re-checked after each fold so
// chains collapse in one sweep.
func Peephole(blocks []ir.Block) {
	counts := useCounts(blocks)

	for b := range blocks {
		instrs := blocks[b].Instructions
		i := 0
		for i+1 < len(instrs) {
			producer := &instrs[i]
			if !producer.IsPureProducer() {
				i++
				continue
			}
			move := &instrs[i+1]
			if move.Op != ir.Move {
				i++
				continue
			}
			tmp, ok := producer.DstReg()
			if !ok || move.Src1 != tmp {
				i++
				continue
			}
			if counts[tmp] != 1 {
				i++
				continue
			}

			producer.Dst = move.Dst
			instrs = append(instrs[:i+1], instrs[i+2:]...)
			// Re-check this position: the producer may now feed the
			// next Move.
		}
		blocks[b].Instructions = instrs
	}
}
