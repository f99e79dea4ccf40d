package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica/internal/ir"
)

func TestTailCallOptimizationRewritesCallReturnPair(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewCall(3, 1, []ir.Register{0}, []ir.Register{1}),
			ir.NewReturn(3),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(1)}},
	}
	TailCallOptimization(blocks)

	require.Len(t, blocks[0].Instructions, 1)
	tail := blocks[0].Instructions[0]
	assert.Equal(t, ir.TailCall, tail.Op)
	assert.Equal(t, ir.Label(1), tail.Label1)
	assert.Equal(t, []ir.Register{0}, tail.Args)
	assert.Equal(t, []ir.Register{1}, tail.Params)
}

func TestTailCallOptimizationRequiresMatchingRegister(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewCall(3, 1, nil, nil),
			ir.NewReturn(4),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(1)}},
	}
	TailCallOptimization(blocks)
	assert.Equal(t, []ir.Op{ir.Call, ir.Return}, ops(blocks[0]))
}

func TestFuseCompareBranchEqualImmediate(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewBinaryImmediate(ir.EqualImmediate, 1, 0, 5),
			ir.NewJumpConditional(1, 1, 2),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	FuseCompareBranches(blocks)

	require.Len(t, blocks[0].Instructions, 1)
	fused := blocks[0].Instructions[0]
	assert.Equal(t, ir.JumpEqualImmediate, fused.Op)
	assert.Equal(t, ir.Register(0), fused.Src1)
	assert.Equal(t, ir.Value(5), fused.Imm)
	assert.Equal(t, ir.Label(1), fused.Label1)
	assert.Equal(t, ir.Label(2), fused.Label2)
}

func TestFuseCompareBranchGreaterThanImmediate(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewBinaryImmediate(ir.GreaterThanImmediate, 1, 0, 9),
			ir.NewJumpConditional(1, 2, 1),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	FuseCompareBranches(blocks)
	assert.Equal(t, ir.JumpGreaterThanImmediate, blocks[0].Instructions[0].Op)
}

func TestFuseCompareBranchLessThanOrEqual(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewBinary(ir.LessThanOrEqual, 2, 0, 1),
			ir.NewJumpConditional(2, 1, 2),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	FuseCompareBranches(blocks)
	fused := blocks[0].Instructions[0]
	assert.Equal(t, ir.JumpLessThanOrEqual, fused.Op)
	assert.Equal(t, ir.Register(0), fused.Src1)
	assert.Equal(t, ir.Register(1), fused.Src2)
}

func TestFuseCompareBranchSkipsMultiUseCondition(t *testing.T) {
	// r1 is also returned later; fusing would lose its value.
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewBinaryImmediate(ir.EqualImmediate, 1, 0, 5),
			ir.NewJumpConditional(1, 1, 2),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(1)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	FuseCompareBranches(blocks)
	assert.Equal(t, ir.EqualImmediate, blocks[0].Instructions[0].Op)
}

func TestSimplifyConstantConditions(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewLoad(0, 0),
			ir.NewMove(1, 0),
			ir.NewJumpConditional(1, 1, 2),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	SimplifyConstantConditions(blocks)

	branch := blocks[0].Instructions[2]
	require.Equal(t, ir.Jump, branch.Op)
	assert.Equal(t, ir.Label(2), branch.Label1)
}

func TestSimplifyConstantConditionsStopsAtRedefinition(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewLoad(0, 1),
			ir.NewBinaryImmediate(ir.AddImmediate, 0, 0, 1),
			ir.NewJumpConditional(0, 1, 2),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
		{Instructions: []ir.Instruction{ir.NewReturn(0)}},
	}
	SimplifyConstantConditions(blocks)
	assert.Equal(t, ir.JumpConditional, blocks[0].Instructions[2].Op)
}

func TestPeepholeCollapsesProducerMovePair(t *testing.T) {
	blocks := singleBlock(
		ir.NewBinaryImmediate(ir.AddImmediate, 5, 0, 1),
		ir.NewMove(1, 5),
		ir.NewReturn(1),
	)
	Peephole(blocks)

	require.Len(t, blocks[0].Instructions, 2)
	add := blocks[0].Instructions[0]
	assert.Equal(t, ir.AddImmediate, add.Op)
	assert.Equal(t, ir.Register(1), add.Dst)
}

func TestPeepholeCollapsesLoadMovePair(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(5, 42),
		ir.NewMove(1, 5),
		ir.NewReturn(1),
	)
	Peephole(blocks)
	require.Len(t, blocks[0].Instructions, 2)
	assert.Equal(t, ir.Register(1), blocks[0].Instructions[0].Dst)
}

func TestPeepholeSkipsMultiUseTemporary(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(5, 42),
		ir.NewMove(1, 5),
		ir.NewBinary(ir.Add, 2, 5, 1),
		ir.NewReturn(2),
	)
	Peephole(blocks)
	assert.Len(t, blocks[0].Instructions, 4)
}

func TestPeepholeNeverTouchesMoveProducer(t *testing.T) {
	// Move+Move is copy propagation's job, not the peephole's.
	blocks := singleBlock(
		ir.NewMove(5, 0),
		ir.NewMove(1, 5),
		ir.NewReturn(1),
	)
	Peephole(blocks)
	assert.Len(t, blocks[0].Instructions, 3)
}

func TestCompactRegistersDense(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(10, 1),
		ir.NewLoad(20, 2),
		ir.NewBinary(ir.Add, 35, 10, 20),
		ir.NewReturn(35),
	)
	CompactRegisters(blocks)

	seen := map[ir.Register]bool{}
	for i := range blocks[0].Instructions {
		blocks[0].Instructions[i].EachRegPtr(func(reg *ir.Register) {
			seen[*reg] = true
		})
	}
	assert.Equal(t, map[ir.Register]bool{0: true, 1: true, 2: true}, seen)

	add := blocks[0].Instructions[2]
	assert.Equal(t, ir.Register(2), add.Dst)
	assert.Equal(t, ir.Register(0), add.Src1)
	assert.Equal(t, ir.Register(1), add.Src2)
}

func TestCompactRegistersCoversCallParameterLists(t *testing.T) {
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{
			ir.NewLoad(10, 4),
			ir.NewCall(30, 1, []ir.Register{10}, []ir.Register{20}),
			ir.NewReturn(30),
		}},
		{Instructions: []ir.Instruction{ir.NewReturn(20)}},
	}
	CompactRegisters(blocks)

	call := blocks[0].Instructions[1]
	assert.Equal(t, []ir.Register{0}, call.Args)
	assert.Equal(t, []ir.Register{1}, call.Params)
	assert.Equal(t, ir.Register(2), call.Dst)
	assert.Equal(t, ir.Register(1), blocks[1].Instructions[0].Src1)
}

func TestCompactRegistersIsIdempotent(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(3, 1),
		ir.NewBinaryImmediate(ir.AddImmediate, 7, 3, 1),
		ir.NewReturn(7),
	)
	CompactRegisters(blocks)
	snapshot := ir.Dump(blocks)
	CompactRegisters(blocks)
	assert.Equal(t, snapshot, ir.Dump(blocks))
}
