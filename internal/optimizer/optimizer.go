// Package optimizer rewrites the block vector through a fixed pass
// pipeline. Pass order matters: loop hoisting exposes constants for
// propagation, propagation exposes dead definitions, tail-call and CFG
// work tighten the graph for fusion and peephole, and compaction runs
// last so every earlier pass may leave register gaps behind.
package optimizer

import "mica/internal/ir"

// Optimize runs the full pipeline and returns the resulting block vector.
// Most passes rewrite blocks in place; CFG cleanup may return a new slice.
func Optimize(blocks []ir.Block) []ir.Block {
	LoopInvariantCodeMotion(blocks)
	CopyPropagation(blocks)
	FoldAggregateLiterals(blocks)
	DeadCodeElimination(blocks)
	TailCallOptimization(blocks)
	blocks = CFGCleanup(blocks)
	FuseCompareBranches(blocks)
	SimplifyConstantConditions(blocks)
	Peephole(blocks)
	CompactRegisters(blocks)
	return blocks
}
