package wasm

// Instruction is one decoded instruction: an opcode plus an
// opcode-specific immediate. Imm is nil for opcodes that carry none
// (arithmetic, comparison, control flow terminators like end/else/return).
type Instruction struct {
	Imm    any
	Opcode Opcode
}

// BlockImm is the immediate of block/loop/if. ElseIdx and EndIdx are
// filled in by a post-decode pass (see decode.go) with the index, within
// the owning instruction stream, of the matching else/end instruction —
// the interpreter never re-scans for a branch target at run time.
type BlockImm struct {
	Type    BlockType
	ElseIdx int // -1 if no else clause (or opcode != if)
	EndIdx  int
}

// BranchImm is the immediate of br and br_if: a relative label depth.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm is the immediate of br_table.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm is the immediate of call.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm is the immediate of call_indirect.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// LocalImm is the immediate of local.get/set/tee.
type LocalImm struct {
	Idx uint32
}

// GlobalImm is the immediate of global.get/set.
type GlobalImm struct {
	Idx uint32
}

// MemImm is the immediate of a load/store instruction.
type MemImm struct {
	Align  uint32 // expressed as log2 of the natural alignment, per the binary format
	Offset uint32
}

// ConstI32Imm is the immediate of i32.const.
type ConstI32Imm struct{ Value int32 }

// ConstI64Imm is the immediate of i64.const.
type ConstI64Imm struct{ Value int64 }

// ConstF32Imm is the immediate of f32.const.
type ConstF32Imm struct{ Value float32 }

// ConstF64Imm is the immediate of f64.const.
type ConstF64Imm struct{ Value float64 }

// MemOpImm is the immediate of memory.size/memory.grow (the reserved
// zero byte, kept only so re-encoding is lossless).
type MemOpImm struct{ MemIdx uint32 }
