package optimizer

import (
	"sort"

	"mica/internal/ir"
)

// CompactRegisters renumbers every referenced register, argument and
// parameter lists included, into the dense range 0..N-1 in ascending
// order of the original ids.
func CompactRegisters(blocks []ir.Block) {
	seen := map[ir.Register]struct{}{}
	for i := range blocks {
		for j := range blocks[i].Instructions {
			blocks[i].Instructions[j].EachRegPtr(func(reg *ir.Register) {
				seen[*reg] = struct{}{}
			})
		}
	}

	regs := make([]ir.Register, 0, len(seen))
	for reg := range seen {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(a, b int) bool { return regs[a] < regs[b] })

	mapping := make(map[ir.Register]ir.Register, len(regs))
	for i, reg := range regs {
		mapping[reg] = ir.Register(i)
	}

	for i := range blocks {
		for j := range blocks[i].Instructions {
			blocks[i].Instructions[j].EachRegPtr(func(reg *ir.Register) {
				*reg = mapping[*reg]
			})
		}
	}
}
