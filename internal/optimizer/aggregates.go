package optimizer

import "mica/internal/ir"

// FoldAggregateLiterals rewrites aggregate construction whose every
// operand is a locally-proven constant Load into the literal fast path,
// and array loads with constant indices into their immediate form.
// Tracking is per block: any other definition of a tracked register
// drops it.
func FoldAggregateLiterals(blocks []ir.Block) {
	for b := range blocks {
		constantLoads := map[ir.Register]ir.Value{}
		for i := range blocks[b].Instructions {
			instr := &blocks[b].Instructions[i]

			if instr.Op == ir.Load {
				constantLoads[instr.Dst] = instr.Imm
				continue
			}

			switch instr.Op {
			case ir.ArrayCreate:
				values := make([]ir.Value, 0, len(instr.Elems))
				allConstant := true
				for _, elem := range instr.Elems {
					value, ok := constantLoads[elem]
					if !ok {
						allConstant = false
						break
					}
					values = append(values, value)
				}
				if allConstant {
					dst := instr.Dst
					*instr = ir.NewArrayLiteralCreate(dst, values)
					delete(constantLoads, dst)
					continue
				}

			case ir.ArrayLoad:
				if index, ok := constantLoads[instr.Src2]; ok {
					*instr = ir.NewArrayLoadImmediate(instr.Dst, instr.Src1, index)
					delete(constantLoads, instr.Dst)
					continue
				}

			case ir.StructCreate:
				fields := make([]ir.FieldValue, 0, len(instr.Fields))
				allConstant := true
				for _, field := range instr.Fields {
					value, ok := constantLoads[field.Reg]
					if !ok {
						allConstant = false
						break
					}
					fields = append(fields, ir.FieldValue{Name: field.Name, Value: value})
				}
				if allConstant {
					dst := instr.Dst
					*instr = ir.NewStructLiteralCreate(dst, fields)
					delete(constantLoads, dst)
					continue
				}
			}

			if dst, ok := instr.DstReg(); ok {
				delete(constantLoads, dst)
			}
		}
	}
}
