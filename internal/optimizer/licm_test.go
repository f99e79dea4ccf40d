package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica/internal/ir"
)

// loopBlocks builds: init in @0, header @1, body @2 with a back edge,
// exit @3. The body computes r4 = r9 + 1 where r9 is defined outside
// the loop, making that instruction invariant.
func loopBlocks() []ir.Block {
	return []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewLoad(9, 100),
			ir.NewLoad(1, 0),
			ir.NewJump(1),
		}},
		{Instructions: []ir.Instruction{
			ir.NewBinaryImmediate(ir.LessThanImmediate, 2, 1, 10),
			ir.NewJumpConditional(2, 2, 3),
		}},
		{Instructions: []ir.Instruction{
			ir.NewBinaryImmediate(ir.AddImmediate, 4, 9, 1),
			ir.NewBinaryImmediate(ir.AddImmediate, 5, 1, 1),
			ir.NewMove(1, 5),
			ir.NewJump(1),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(1)}},
	}
}

func TestLICMHoistsInvariantComputation(t *testing.T) {
	blocks := loopBlocks()
	LoopInvariantCodeMotion(blocks)

	// r4 = r9 + 1 moved to the pre-header (@0), before its terminator.
	hoisted := false
	for _, instr := range blocks[0].Instructions {
		if instr.Op == ir.AddImmediate && instr.Dst == 4 {
			hoisted = true
		}
	}
	assert.True(t, hoisted, "invariant AddImmediate should move to the pre-header")
	assert.True(t, blocks[0].Instructions[len(blocks[0].Instructions)-1].Op.IsTerminator())

	for _, instr := range blocks[2].Instructions {
		assert.NotEqual(t, ir.Register(4), instr.Dst,
			"hoisted instruction must leave the loop body")
	}
}

func TestLICMKeepsVaryingComputation(t *testing.T) {
	blocks := loopBlocks()
	LoopInvariantCodeMotion(blocks)

	// r5 = r1 + 1 depends on the loop counter and must stay put.
	stayed := false
	for _, instr := range blocks[2].Instructions {
		if instr.Op == ir.AddImmediate && instr.Dst == 5 {
			stayed = true
		}
	}
	assert.True(t, stayed)
}

func TestLICMSkipsLoopsStartingAtEntry(t *testing.T) {
	// Header at block 0 has no pre-header; nothing may move.
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewBinaryImmediate(ir.AddImmediate, 1, 0, 1),
			ir.NewJumpConditional(1, 0, 1),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(1)}},
	}
	before := ir.Dump(blocks)
	LoopInvariantCodeMotion(blocks)
	assert.Equal(t, before, ir.Dump(blocks))
}

func TestLICMHoistsChainsToFixedPoint(t *testing.T) {
	// r4 depends on hoistable r3; both should leave the loop, r3 first.
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewLoad(9, 2),
			ir.NewLoad(1, 0),
			ir.NewJump(1),
		}},
		{Instructions: []ir.Instruction{
			ir.NewBinaryImmediate(ir.MultiplyImmediate, 3, 9, 10),
			ir.NewBinaryImmediate(ir.AddImmediate, 4, 3, 1),
			ir.NewBinaryImmediate(ir.AddImmediate, 5, 1, 1),
			ir.NewMove(1, 5),
			ir.NewBinaryImmediate(ir.LessThanImmediate, 2, 1, 10),
			ir.NewJumpConditional(2, 1, 2),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(4)}},
	}
	LoopInvariantCodeMotion(blocks)

	hoistedDsts := map[ir.Register]bool{}
	for _, instr := range blocks[0].Instructions {
		if dst, ok := instr.DstReg(); ok {
			hoistedDsts[dst] = true
		}
	}
	assert.True(t, hoistedDsts[3])
	assert.True(t, hoistedDsts[4])
}

func TestLICMPreservesExecution(t *testing.T) {
	blocks := loopBlocks()
	before := interpretBlocks(t, loopBlocks())
	LoopInvariantCodeMotion(blocks)
	assert.Equal(t, before, interpretBlocks(t, blocks))
	require.Equal(t, ir.Value(10), before)
}
