package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica/internal/ir"
)

func TestFoldAllConstantArrayCreate(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(0, 4),
		ir.NewLoad(1, 1),
		ir.NewLoad(2, 5),
		ir.NewArrayCreate(3, []ir.Register{0, 1, 2}),
		ir.NewReturn(3),
	)
	FoldAggregateLiterals(blocks)

	create := blocks[0].Instructions[3]
	require.Equal(t, ir.ArrayLiteralCreate, create.Op)
	assert.Equal(t, []ir.Value{4, 1, 5}, create.Values)
}

func TestFoldSkipsPartiallyConstantArray(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(0, 4),
		ir.NewMove(1, 9),
		ir.NewArrayCreate(3, []ir.Register{0, 1}),
		ir.NewReturn(3),
	)
	FoldAggregateLiterals(blocks)
	assert.Equal(t, ir.ArrayCreate, blocks[0].Instructions[2].Op)
}

func TestFoldSkipsOverwrittenConstant(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(0, 4),
		ir.NewBinaryImmediate(ir.AddImmediate, 0, 0, 1),
		ir.NewArrayCreate(3, []ir.Register{0}),
		ir.NewReturn(3),
	)
	FoldAggregateLiterals(blocks)
	assert.Equal(t, ir.ArrayCreate, blocks[0].Instructions[2].Op)
}

func TestFoldStructCreate(t *testing.T) {
	blocks := singleBlock(
		ir.NewLoad(0, 40),
		ir.NewLoad(1, 2),
		ir.NewStructCreate(2, []ir.Field{{Name: "x", Reg: 0}, {Name: "y", Reg: 1}}),
		ir.NewReturn(2),
	)
	FoldAggregateLiterals(blocks)

	create := blocks[0].Instructions[2]
	require.Equal(t, ir.StructLiteralCreate, create.Op)
	require.Len(t, create.FieldValues, 2)
	assert.Equal(t, "x", create.FieldValues[0].Name)
	assert.Equal(t, ir.Value(40), create.FieldValues[0].Value)
}

func TestFoldArrayLoadWithConstantIndex(t *testing.T) {
	blocks := singleBlock(
		ir.NewArrayLiteralCreate(0, []ir.Value{1, 2, 3}),
		ir.NewLoad(1, 2),
		ir.NewArrayLoad(2, 0, 1),
		ir.NewReturn(2),
	)
	FoldAggregateLiterals(blocks)

	load := blocks[0].Instructions[2]
	require.Equal(t, ir.ArrayLoadImmediate, load.Op)
	assert.Equal(t, ir.Value(2), load.Imm)
	assert.Equal(t, ir.Register(0), load.Src1)
}

func TestFoldTrackingIsPerBlock(t *testing.T) {
	// The Load lives in a different block; the fold must not fire.
	blocks := []ir.Block{
		{Instructions: []ir.Instruction{ir.NewLoad(0, 4), ir.NewJump(1)}},
		{Instructions: []ir.Instruction{
			ir.NewArrayCreate(1, []ir.Register{0}),
			ir.NewReturn(1),
		}},
	}
	FoldAggregateLiterals(blocks)
	assert.Equal(t, ir.ArrayCreate, blocks[1].Instructions[0].Op)
}
