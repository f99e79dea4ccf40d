package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica/internal/ir"
)

func TestCFGCleanupTrimsAfterTerminator(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewLoad(0, 1),
			ir.NewReturn(0),
			ir.NewLoad(1, 2),
			ir.NewLoad(2, 3),
		}},
	}
	blocks = CFGCleanup(blocks)
	assert.Equal(t, []ir.Op{ir.Load, ir.Return}, ops(blocks[0]))
}

func TestCFGCleanupCollapsesTrampolineChains(t *testing.T) {
	// @0 -> @1 -> @2 -> @3 (return); @1 and @2 are jump-only.
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{ir.NewLoad(0, 1), ir.NewJump(1)}},
		{Instructions: []ir.Instruction{ir.NewJump(2)}},
		{Instructions: []ir.Instruction{ir.NewJump(3)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	blocks = CFGCleanup(blocks)

	// The entry now jumps straight to the return block and the
	// trampolines are pruned as unreachable.
	require.Len(t, blocks, 2)
	jump := blocks[0].Instructions[1]
	require.Equal(t, ir.Jump, jump.Op)
	assert.Equal(t, ir.Label(1), jump.Label1)
	assert.Equal(t, ir.Return, blocks[1].Instructions[0].Op)
}

func TestCFGCleanupSelfLoopSurvives(t *testing.T) {
	// A jump-only block targeting itself must not hang the resolver.
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{ir.NewLoad(0, 1), ir.NewJumpConditional(0, 1, 2)}},
		{Instructions: []ir.Instruction{ir.NewJump(1)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	blocks = CFGCleanup(blocks)
	require.NotEmpty(t, blocks)
}

func TestCFGCleanupPrunesUnreachableBlocks(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{ir.NewLoad(0, 5), ir.NewJump(2)}},
		{Instructions: []ir.Instruction{ir.NewLoad(1, 9), ir.NewReturn(1)}}, // dead
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	blocks = CFGCleanup(blocks)

	require.Len(t, blocks, 2)
	jump := blocks[0].Instructions[1]
	assert.Equal(t, ir.Label(1), jump.Label1, "labels renumber densely")
}

func TestCFGCleanupKeepsCallTargets(t *testing.T) {
	// The function body is only reachable through the Call label.
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewCall(0, 2, nil, nil),
			ir.NewReturn(0),
		}},
		{Instructions: []ir.Instruction{ir.NewLoad(9, 9), ir.NewReturn(9)}}, // dead
		{Instructions: []ir.Instruction{ir.NewLoad(1, 7), ir.NewReturn(1)}},
	}
	blocks = CFGCleanup(blocks)

	require.Len(t, blocks, 2)
	call := blocks[0].Instructions[0]
	assert.Equal(t, ir.Label(1), call.Label1)
}

func TestCFGCleanupEveryBlockReachableAfterwards(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{ir.NewLoad(0, 1), ir.NewJumpConditional(0, 1, 3)}},
		{Instructions: []ir.Instruction{ir.NewJump(3)}},
		{Instructions: []ir.Instruction{ir.NewLoad(2, 2), ir.NewReturn(2)}}, // dead
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	blocks = CFGCleanup(blocks)

	reachable := map[int]bool{0: true}
	worklist := []int{0}
	for len(worklist) > 0 {
		i := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for j := range blocks[i].Instructions {
			blocks[i].Instructions[j].EachLabelPtr(func(label *ir.Label) {
				if !reachable[int(*label)] {
					reachable[int(*label)] = true
					worklist = append(worklist, int(*label))
				}
			})
		}
	}
	assert.Len(t, reachable, len(blocks))
}

func TestCFGCleanupIsIdempotent(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{ir.NewLoad(0, 1), ir.NewJump(1)}},
		{Instructions: []ir.Instruction{ir.NewJump(2)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0), ir.NewLoad(5, 5)}},
		{Instructions: []ir.Instruction{ir.NewReturn(9)}}, // dead
	}
	blocks = CFGCleanup(blocks)
	snapshot := ir.Dump(blocks)
	blocks = CFGCleanup(blocks)
	assert.Equal(t, snapshot, ir.Dump(blocks))
}
