package parser

import "github.com/jasonwyatt/wasmkit/wasm"

// plainOpcodes maps a WAT mnemonic to its opcode for every instruction
// that carries no text-format immediate at all: parametric ops, and the
// whole numeric comparison/arithmetic/conversion/sign-extension family.
var plainOpcodes = map[string]wasm.Opcode{
	"unreachable": wasm.OpUnreachable,
	"nop":         wasm.OpNop,
	"return":      wasm.OpReturn,
	"drop":        wasm.OpDrop,
	"select":      wasm.OpSelect,

	"memory.size": wasm.OpMemorySize,
	"memory.grow": wasm.OpMemoryGrow,

	"i32.eqz": wasm.OpI32Eqz, "i32.eq": wasm.OpI32Eq, "i32.ne": wasm.OpI32Ne,
	"i32.lt_s": wasm.OpI32LtS, "i32.lt_u": wasm.OpI32LtU,
	"i32.gt_s": wasm.OpI32GtS, "i32.gt_u": wasm.OpI32GtU,
	"i32.le_s": wasm.OpI32LeS, "i32.le_u": wasm.OpI32LeU,
	"i32.ge_s": wasm.OpI32GeS, "i32.ge_u": wasm.OpI32GeU,

	"i64.eqz": wasm.OpI64Eqz, "i64.eq": wasm.OpI64Eq, "i64.ne": wasm.OpI64Ne,
	"i64.lt_s": wasm.OpI64LtS, "i64.lt_u": wasm.OpI64LtU,
	"i64.gt_s": wasm.OpI64GtS, "i64.gt_u": wasm.OpI64GtU,
	"i64.le_s": wasm.OpI64LeS, "i64.le_u": wasm.OpI64LeU,
	"i64.ge_s": wasm.OpI64GeS, "i64.ge_u": wasm.OpI64GeU,

	"f32.eq": wasm.OpF32Eq, "f32.ne": wasm.OpF32Ne,
	"f32.lt": wasm.OpF32Lt, "f32.gt": wasm.OpF32Gt,
	"f32.le": wasm.OpF32Le, "f32.ge": wasm.OpF32Ge,

	"f64.eq": wasm.OpF64Eq, "f64.ne": wasm.OpF64Ne,
	"f64.lt": wasm.OpF64Lt, "f64.gt": wasm.OpF64Gt,
	"f64.le": wasm.OpF64Le, "f64.ge": wasm.OpF64Ge,

	"i32.clz": wasm.OpI32Clz, "i32.ctz": wasm.OpI32Ctz, "i32.popcnt": wasm.OpI32Popcnt,
	"i32.add": wasm.OpI32Add, "i32.sub": wasm.OpI32Sub, "i32.mul": wasm.OpI32Mul,
	"i32.div_s": wasm.OpI32DivS, "i32.div_u": wasm.OpI32DivU,
	"i32.rem_s": wasm.OpI32RemS, "i32.rem_u": wasm.OpI32RemU,
	"i32.and": wasm.OpI32And, "i32.or": wasm.OpI32Or, "i32.xor": wasm.OpI32Xor,
	"i32.shl": wasm.OpI32Shl, "i32.shr_s": wasm.OpI32ShrS, "i32.shr_u": wasm.OpI32ShrU,
	"i32.rotl": wasm.OpI32Rotl, "i32.rotr": wasm.OpI32Rotr,

	"i64.clz": wasm.OpI64Clz, "i64.ctz": wasm.OpI64Ctz, "i64.popcnt": wasm.OpI64Popcnt,
	"i64.add": wasm.OpI64Add, "i64.sub": wasm.OpI64Sub, "i64.mul": wasm.OpI64Mul,
	"i64.div_s": wasm.OpI64DivS, "i64.div_u": wasm.OpI64DivU,
	"i64.rem_s": wasm.OpI64RemS, "i64.rem_u": wasm.OpI64RemU,
	"i64.and": wasm.OpI64And, "i64.or": wasm.OpI64Or, "i64.xor": wasm.OpI64Xor,
	"i64.shl": wasm.OpI64Shl, "i64.shr_s": wasm.OpI64ShrS, "i64.shr_u": wasm.OpI64ShrU,
	"i64.rotl": wasm.OpI64Rotl, "i64.rotr": wasm.OpI64Rotr,

	"f32.abs": wasm.OpF32Abs, "f32.neg": wasm.OpF32Neg, "f32.ceil": wasm.OpF32Ceil,
	"f32.floor": wasm.OpF32Floor, "f32.trunc": wasm.OpF32Trunc, "f32.nearest": wasm.OpF32Nearest,
	"f32.sqrt": wasm.OpF32Sqrt, "f32.add": wasm.OpF32Add, "f32.sub": wasm.OpF32Sub,
	"f32.mul": wasm.OpF32Mul, "f32.div": wasm.OpF32Div, "f32.min": wasm.OpF32Min,
	"f32.max": wasm.OpF32Max, "f32.copysign": wasm.OpF32Copysign,

	"f64.abs": wasm.OpF64Abs, "f64.neg": wasm.OpF64Neg, "f64.ceil": wasm.OpF64Ceil,
	"f64.floor": wasm.OpF64Floor, "f64.trunc": wasm.OpF64Trunc, "f64.nearest": wasm.OpF64Nearest,
	"f64.sqrt": wasm.OpF64Sqrt, "f64.add": wasm.OpF64Add, "f64.sub": wasm.OpF64Sub,
	"f64.mul": wasm.OpF64Mul, "f64.div": wasm.OpF64Div, "f64.min": wasm.OpF64Min,
	"f64.max": wasm.OpF64Max, "f64.copysign": wasm.OpF64Copysign,

	"i32.wrap_i64": wasm.OpI32WrapI64,
	"i32.trunc_f32_s": wasm.OpI32TruncF32S, "i32.trunc_f32_u": wasm.OpI32TruncF32U,
	"i32.trunc_f64_s": wasm.OpI32TruncF64S, "i32.trunc_f64_u": wasm.OpI32TruncF64U,
	"i64.extend_i32_s": wasm.OpI64ExtendI32S, "i64.extend_i32_u": wasm.OpI64ExtendI32U,
	"i64.trunc_f32_s": wasm.OpI64TruncF32S, "i64.trunc_f32_u": wasm.OpI64TruncF32U,
	"i64.trunc_f64_s": wasm.OpI64TruncF64S, "i64.trunc_f64_u": wasm.OpI64TruncF64U,
	"f32.convert_i32_s": wasm.OpF32ConvertI32S, "f32.convert_i32_u": wasm.OpF32ConvertI32U,
	"f32.convert_i64_s": wasm.OpF32ConvertI64S, "f32.convert_i64_u": wasm.OpF32ConvertI64U,
	"f32.demote_f64": wasm.OpF32DemoteF64,
	"f64.convert_i32_s": wasm.OpF64ConvertI32S, "f64.convert_i32_u": wasm.OpF64ConvertI32U,
	"f64.convert_i64_s": wasm.OpF64ConvertI64S, "f64.convert_i64_u": wasm.OpF64ConvertI64U,
	"f64.promote_f32": wasm.OpF64PromoteF32,
	"i32.reinterpret_f32": wasm.OpI32ReinterpretF32, "i64.reinterpret_f64": wasm.OpI64ReinterpretF64,
	"f32.reinterpret_i32": wasm.OpF32ReinterpretI32, "f64.reinterpret_i64": wasm.OpF64ReinterpretI64,

	"i32.extend8_s": wasm.OpI32Extend8S, "i32.extend16_s": wasm.OpI32Extend16S,
	"i64.extend8_s": wasm.OpI64Extend8S, "i64.extend16_s": wasm.OpI64Extend16S, "i64.extend32_s": wasm.OpI64Extend32S,
}

// memOpcodes maps a WAT load/store mnemonic to its opcode; every one of
// these takes an optional "offset=N" and "align=N" text immediate.
var memOpcodes = map[string]wasm.Opcode{
	"i32.load": wasm.OpI32Load, "i64.load": wasm.OpI64Load,
	"f32.load": wasm.OpF32Load, "f64.load": wasm.OpF64Load,
	"i32.load8_s": wasm.OpI32Load8S, "i32.load8_u": wasm.OpI32Load8U,
	"i32.load16_s": wasm.OpI32Load16S, "i32.load16_u": wasm.OpI32Load16U,
	"i64.load8_s": wasm.OpI64Load8S, "i64.load8_u": wasm.OpI64Load8U,
	"i64.load16_s": wasm.OpI64Load16S, "i64.load16_u": wasm.OpI64Load16U,
	"i64.load32_s": wasm.OpI64Load32S, "i64.load32_u": wasm.OpI64Load32U,
	"i32.store": wasm.OpI32Store, "i64.store": wasm.OpI64Store,
	"f32.store": wasm.OpF32Store, "f64.store": wasm.OpF64Store,
	"i32.store8": wasm.OpI32Store8, "i32.store16": wasm.OpI32Store16,
	"i64.store8": wasm.OpI64Store8, "i64.store16": wasm.OpI64Store16, "i64.store32": wasm.OpI64Store32,
}

// truncSatOpcodes maps a WAT "*.trunc_sat_*" mnemonic to its 0xFC
// sub-opcode (spec.md: non-trapping saturating truncation, included).
var truncSatOpcodes = map[string]wasm.Opcode{
	"i32.trunc_sat_f32_s": wasm.OpMiscI32TruncSatF32S, "i32.trunc_sat_f32_u": wasm.OpMiscI32TruncSatF32U,
	"i32.trunc_sat_f64_s": wasm.OpMiscI32TruncSatF64S, "i32.trunc_sat_f64_u": wasm.OpMiscI32TruncSatF64U,
	"i64.trunc_sat_f32_s": wasm.OpMiscI64TruncSatF32S, "i64.trunc_sat_f32_u": wasm.OpMiscI64TruncSatF32U,
	"i64.trunc_sat_f64_s": wasm.OpMiscI64TruncSatF64S, "i64.trunc_sat_f64_u": wasm.OpMiscI64TruncSatF64U,
}

// defaultAlign is the natural (maximum useful) alignment exponent for a
// load/store mnemonic, used when the text omits an explicit align=.
func defaultAlign(op wasm.Opcode) uint32 {
	switch op {
	case wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI64Load8S, wasm.OpI64Load8U,
		wasm.OpI32Store8, wasm.OpI64Store8:
		return 0
	case wasm.OpI32Load16S, wasm.OpI32Load16U, wasm.OpI64Load16S, wasm.OpI64Load16U,
		wasm.OpI32Store16, wasm.OpI64Store16:
		return 1
	case wasm.OpI32Load, wasm.OpF32Load, wasm.OpI64Load32S, wasm.OpI64Load32U,
		wasm.OpI32Store, wasm.OpF32Store, wasm.OpI64Store32:
		return 2
	case wasm.OpI64Load, wasm.OpF64Load, wasm.OpI64Store, wasm.OpF64Store:
		return 3
	}
	return 0
}
