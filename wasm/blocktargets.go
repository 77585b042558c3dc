package wasm

import werrors "github.com/jasonwyatt/wasmkit/errors"

// ResolveBlockTargets fills in ElseIdx/EndIdx on every BlockImm in an
// already-built flat instruction stream. It is the text-format
// counterpart to decodeExpr's inline resolution: the WAT parser emits
// Block/Loop/If/Else/End markers in program order without knowing their
// jump targets yet, then calls this once per function body.
func ResolveBlockTargets(instrs []Instruction) error {
	var openBlocks []int

	for i, instr := range instrs {
		switch instr.Opcode {
		case OpBlock, OpLoop, OpIf:
			openBlocks = append(openBlocks, i)

		case OpElse:
			if len(openBlocks) == 0 {
				return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "else without matching if")
			}
			top := openBlocks[len(openBlocks)-1]
			blk, ok := instrs[top].Imm.(*BlockImm)
			if !ok {
				return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "else follows non-block instruction")
			}
			blk.ElseIdx = i

		case OpEnd:
			if len(openBlocks) == 0 {
				continue // the function-level end has no enclosing block
			}
			top := openBlocks[len(openBlocks)-1]
			openBlocks = openBlocks[:len(openBlocks)-1]
			blk, ok := instrs[top].Imm.(*BlockImm)
			if !ok {
				return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "end follows non-block instruction")
			}
			blk.EndIdx = i
		}
	}

	if len(openBlocks) > 0 {
		return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "unclosed block")
	}
	return nil
}
