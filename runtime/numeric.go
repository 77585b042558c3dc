package runtime

import (
	"math"
	"math/bits"

	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/wasm"
)

// effectiveAddr computes a memarg's effective address as spec §4.H
// defines it: index + memarg.offset, widened to 64 bits first so a
// dynamic index near 0xFFFFFFFF with a nonzero offset can't wrap back
// into a small, seemingly in-bounds 32-bit address. Any sum that doesn't
// fit in 32 bits can never be in bounds (memory tops out at 2^32 bytes),
// so it traps here rather than silently truncating.
func effectiveAddr(index, offset uint32) (uint32, error) {
	sum := uint64(index) + uint64(offset)
	if sum > math.MaxUint32 {
		return 0, werrors.New(werrors.PhaseRuntime, werrors.KindMemoryOutOfBounds, "effective address %d exceeds 32-bit range", sum)
	}
	return uint32(sum), nil
}

func isMemOp(op wasm.Opcode) bool {
	switch op {
	case wasm.OpI32Load, wasm.OpI64Load, wasm.OpF32Load, wasm.OpF64Load,
		wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI32Load16S, wasm.OpI32Load16U,
		wasm.OpI64Load8S, wasm.OpI64Load8U, wasm.OpI64Load16S, wasm.OpI64Load16U, wasm.OpI64Load32S, wasm.OpI64Load32U,
		wasm.OpI32Store, wasm.OpI64Store, wasm.OpF32Store, wasm.OpF64Store,
		wasm.OpI32Store8, wasm.OpI32Store16, wasm.OpI64Store8, wasm.OpI64Store16, wasm.OpI64Store32:
		return true
	}
	return false
}

func execMemOp(instr wasm.Instruction, mem *MemoryInstance, stackp *[]Value) error {
	mi := instr.Imm.(wasm.MemImm)
	stack := *stackp
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(v Value) { stack = append(stack, v) }
	defer func() { *stackp = stack }()

	switch instr.Opcode {
	case wasm.OpI32Store, wasm.OpI64Store, wasm.OpF32Store, wasm.OpF64Store,
		wasm.OpI32Store8, wasm.OpI32Store16, wasm.OpI64Store8, wasm.OpI64Store16, wasm.OpI64Store32:
		val := pop()
		addr, err := effectiveAddr(pop().U32(), mi.Offset)
		if err != nil {
			return err
		}
		switch instr.Opcode {
		case wasm.OpI32Store:
			return mem.WriteU32(addr, val.U32())
		case wasm.OpI64Store:
			return mem.WriteU64(addr, val.U64())
		case wasm.OpF32Store:
			return mem.WriteF32(addr, val.F32())
		case wasm.OpF64Store:
			return mem.WriteF64(addr, val.F64())
		case wasm.OpI32Store8, wasm.OpI64Store8:
			return mem.WriteByte(addr, byte(val.U64()))
		case wasm.OpI32Store16, wasm.OpI64Store16:
			return mem.WriteU16(addr, uint16(val.U64()))
		case wasm.OpI64Store32:
			return mem.WriteU32(addr, uint32(val.U64()))
		}
	default:
		addr, err := effectiveAddr(pop().U32(), mi.Offset)
		if err != nil {
			return err
		}
		switch instr.Opcode {
		case wasm.OpI32Load:
			v, err := mem.ReadU32(addr)
			if err != nil {
				return err
			}
			push(ValueU32(v))
		case wasm.OpI64Load:
			v, err := mem.ReadU64(addr)
			if err != nil {
				return err
			}
			push(ValueU64(v))
		case wasm.OpF32Load:
			v, err := mem.ReadF32(addr)
			if err != nil {
				return err
			}
			push(ValueF32(v))
		case wasm.OpF64Load:
			v, err := mem.ReadF64(addr)
			if err != nil {
				return err
			}
			push(ValueF64(v))
		case wasm.OpI32Load8S:
			v, err := mem.ReadByte(addr)
			if err != nil {
				return err
			}
			push(ValueI32(int32(int8(v))))
		case wasm.OpI32Load8U:
			v, err := mem.ReadByte(addr)
			if err != nil {
				return err
			}
			push(ValueI32(int32(v)))
		case wasm.OpI32Load16S:
			v, err := mem.ReadU16(addr)
			if err != nil {
				return err
			}
			push(ValueI32(int32(int16(v))))
		case wasm.OpI32Load16U:
			v, err := mem.ReadU16(addr)
			if err != nil {
				return err
			}
			push(ValueI32(int32(v)))
		case wasm.OpI64Load8S:
			v, err := mem.ReadByte(addr)
			if err != nil {
				return err
			}
			push(ValueI64(int64(int8(v))))
		case wasm.OpI64Load8U:
			v, err := mem.ReadByte(addr)
			if err != nil {
				return err
			}
			push(ValueI64(int64(v)))
		case wasm.OpI64Load16S:
			v, err := mem.ReadU16(addr)
			if err != nil {
				return err
			}
			push(ValueI64(int64(int16(v))))
		case wasm.OpI64Load16U:
			v, err := mem.ReadU16(addr)
			if err != nil {
				return err
			}
			push(ValueI64(int64(v)))
		case wasm.OpI64Load32S:
			v, err := mem.ReadU32(addr)
			if err != nil {
				return err
			}
			push(ValueI64(int64(int32(v))))
		case wasm.OpI64Load32U:
			v, err := mem.ReadU32(addr)
			if err != nil {
				return err
			}
			push(ValueI64(int64(v)))
		}
	}
	return nil
}

// execNumeric executes every opcode with a purely arithmetic, comparison,
// or conversion signature (no control flow, memory, or call effect).
func execNumeric(op wasm.Opcode, stackp *[]Value) error {
	stack := *stackp
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(v Value) { stack = append(stack, v) }
	defer func() { *stackp = stack }()

	b2i := func(b bool) Value {
		if b {
			return ValueI32(1)
		}
		return ValueI32(0)
	}

	switch op {
	// i32 comparisons
	case wasm.OpI32Eqz:
		push(b2i(pop().I32() == 0))
	case wasm.OpI32Eq:
		y, x := pop().I32(), pop().I32()
		push(b2i(x == y))
	case wasm.OpI32Ne:
		y, x := pop().I32(), pop().I32()
		push(b2i(x != y))
	case wasm.OpI32LtS:
		y, x := pop().I32(), pop().I32()
		push(b2i(x < y))
	case wasm.OpI32LtU:
		y, x := pop().U32(), pop().U32()
		push(b2i(x < y))
	case wasm.OpI32GtS:
		y, x := pop().I32(), pop().I32()
		push(b2i(x > y))
	case wasm.OpI32GtU:
		y, x := pop().U32(), pop().U32()
		push(b2i(x > y))
	case wasm.OpI32LeS:
		y, x := pop().I32(), pop().I32()
		push(b2i(x <= y))
	case wasm.OpI32LeU:
		y, x := pop().U32(), pop().U32()
		push(b2i(x <= y))
	case wasm.OpI32GeS:
		y, x := pop().I32(), pop().I32()
		push(b2i(x >= y))
	case wasm.OpI32GeU:
		y, x := pop().U32(), pop().U32()
		push(b2i(x >= y))

	// i64 comparisons
	case wasm.OpI64Eqz:
		push(b2i(pop().I64() == 0))
	case wasm.OpI64Eq:
		y, x := pop().I64(), pop().I64()
		push(b2i(x == y))
	case wasm.OpI64Ne:
		y, x := pop().I64(), pop().I64()
		push(b2i(x != y))
	case wasm.OpI64LtS:
		y, x := pop().I64(), pop().I64()
		push(b2i(x < y))
	case wasm.OpI64LtU:
		y, x := pop().U64(), pop().U64()
		push(b2i(x < y))
	case wasm.OpI64GtS:
		y, x := pop().I64(), pop().I64()
		push(b2i(x > y))
	case wasm.OpI64GtU:
		y, x := pop().U64(), pop().U64()
		push(b2i(x > y))
	case wasm.OpI64LeS:
		y, x := pop().I64(), pop().I64()
		push(b2i(x <= y))
	case wasm.OpI64LeU:
		y, x := pop().U64(), pop().U64()
		push(b2i(x <= y))
	case wasm.OpI64GeS:
		y, x := pop().I64(), pop().I64()
		push(b2i(x >= y))
	case wasm.OpI64GeU:
		y, x := pop().U64(), pop().U64()
		push(b2i(x >= y))

	// f32/f64 comparisons
	case wasm.OpF32Eq:
		y, x := pop().F32(), pop().F32()
		push(b2i(x == y))
	case wasm.OpF32Ne:
		y, x := pop().F32(), pop().F32()
		push(b2i(x != y))
	case wasm.OpF32Lt:
		y, x := pop().F32(), pop().F32()
		push(b2i(x < y))
	case wasm.OpF32Gt:
		y, x := pop().F32(), pop().F32()
		push(b2i(x > y))
	case wasm.OpF32Le:
		y, x := pop().F32(), pop().F32()
		push(b2i(x <= y))
	case wasm.OpF32Ge:
		y, x := pop().F32(), pop().F32()
		push(b2i(x >= y))
	case wasm.OpF64Eq:
		y, x := pop().F64(), pop().F64()
		push(b2i(x == y))
	case wasm.OpF64Ne:
		y, x := pop().F64(), pop().F64()
		push(b2i(x != y))
	case wasm.OpF64Lt:
		y, x := pop().F64(), pop().F64()
		push(b2i(x < y))
	case wasm.OpF64Gt:
		y, x := pop().F64(), pop().F64()
		push(b2i(x > y))
	case wasm.OpF64Le:
		y, x := pop().F64(), pop().F64()
		push(b2i(x <= y))
	case wasm.OpF64Ge:
		y, x := pop().F64(), pop().F64()
		push(b2i(x >= y))

	// i32 arithmetic
	case wasm.OpI32Clz:
		push(ValueI32(int32(bits.LeadingZeros32(pop().U32()))))
	case wasm.OpI32Ctz:
		push(ValueI32(int32(bits.TrailingZeros32(pop().U32()))))
	case wasm.OpI32Popcnt:
		push(ValueI32(int32(bits.OnesCount32(pop().U32()))))
	case wasm.OpI32Add:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x + y))
	case wasm.OpI32Sub:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x - y))
	case wasm.OpI32Mul:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x * y))
	case wasm.OpI32DivS:
		y, x := pop().I32(), pop().I32()
		if y == 0 {
			return trapDivZero()
		}
		if x == math.MinInt32 && y == -1 {
			return trapIntOverflow()
		}
		push(ValueI32(x / y))
	case wasm.OpI32DivU:
		y, x := pop().U32(), pop().U32()
		if y == 0 {
			return trapDivZero()
		}
		push(ValueU32(x / y))
	case wasm.OpI32RemS:
		y, x := pop().I32(), pop().I32()
		if y == 0 {
			return trapDivZero()
		}
		if x == math.MinInt32 && y == -1 {
			push(ValueI32(0))
		} else {
			push(ValueI32(x % y))
		}
	case wasm.OpI32RemU:
		y, x := pop().U32(), pop().U32()
		if y == 0 {
			return trapDivZero()
		}
		push(ValueU32(x % y))
	case wasm.OpI32And:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x & y))
	case wasm.OpI32Or:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x | y))
	case wasm.OpI32Xor:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x ^ y))
	case wasm.OpI32Shl:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x << (y & 31)))
	case wasm.OpI32ShrS:
		y, x := pop().U32(), pop().I32()
		push(ValueI32(x >> (y & 31)))
	case wasm.OpI32ShrU:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(x >> (y & 31)))
	case wasm.OpI32Rotl:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(bits.RotateLeft32(x, int(y&31))))
	case wasm.OpI32Rotr:
		y, x := pop().U32(), pop().U32()
		push(ValueU32(bits.RotateLeft32(x, -int(y&31))))

	// i64 arithmetic
	case wasm.OpI64Clz:
		push(ValueI64(int64(bits.LeadingZeros64(pop().U64()))))
	case wasm.OpI64Ctz:
		push(ValueI64(int64(bits.TrailingZeros64(pop().U64()))))
	case wasm.OpI64Popcnt:
		push(ValueI64(int64(bits.OnesCount64(pop().U64()))))
	case wasm.OpI64Add:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x + y))
	case wasm.OpI64Sub:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x - y))
	case wasm.OpI64Mul:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x * y))
	case wasm.OpI64DivS:
		y, x := pop().I64(), pop().I64()
		if y == 0 {
			return trapDivZero()
		}
		if x == math.MinInt64 && y == -1 {
			return trapIntOverflow()
		}
		push(ValueI64(x / y))
	case wasm.OpI64DivU:
		y, x := pop().U64(), pop().U64()
		if y == 0 {
			return trapDivZero()
		}
		push(ValueU64(x / y))
	case wasm.OpI64RemS:
		y, x := pop().I64(), pop().I64()
		if y == 0 {
			return trapDivZero()
		}
		if x == math.MinInt64 && y == -1 {
			push(ValueI64(0))
		} else {
			push(ValueI64(x % y))
		}
	case wasm.OpI64RemU:
		y, x := pop().U64(), pop().U64()
		if y == 0 {
			return trapDivZero()
		}
		push(ValueU64(x % y))
	case wasm.OpI64And:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x & y))
	case wasm.OpI64Or:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x | y))
	case wasm.OpI64Xor:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x ^ y))
	case wasm.OpI64Shl:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x << (y & 63)))
	case wasm.OpI64ShrS:
		y, x := pop().U64(), pop().I64()
		push(ValueI64(x >> (y & 63)))
	case wasm.OpI64ShrU:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(x >> (y & 63)))
	case wasm.OpI64Rotl:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(bits.RotateLeft64(x, int(y&63))))
	case wasm.OpI64Rotr:
		y, x := pop().U64(), pop().U64()
		push(ValueU64(bits.RotateLeft64(x, -int(y&63))))

	// f32 arithmetic
	case wasm.OpF32Abs:
		push(ValueF32(float32(math.Abs(float64(pop().F32())))))
	case wasm.OpF32Neg:
		push(ValueF32(-pop().F32()))
	case wasm.OpF32Ceil:
		push(ValueF32(float32(math.Ceil(float64(pop().F32())))))
	case wasm.OpF32Floor:
		push(ValueF32(float32(math.Floor(float64(pop().F32())))))
	case wasm.OpF32Trunc:
		push(ValueF32(float32(math.Trunc(float64(pop().F32())))))
	case wasm.OpF32Nearest:
		push(ValueF32(float32(math.RoundToEven(float64(pop().F32())))))
	case wasm.OpF32Sqrt:
		push(ValueF32(float32(math.Sqrt(float64(pop().F32())))))
	case wasm.OpF32Add:
		y, x := pop().F32(), pop().F32()
		push(ValueF32(x + y))
	case wasm.OpF32Sub:
		y, x := pop().F32(), pop().F32()
		push(ValueF32(x - y))
	case wasm.OpF32Mul:
		y, x := pop().F32(), pop().F32()
		push(ValueF32(x * y))
	case wasm.OpF32Div:
		y, x := pop().F32(), pop().F32()
		push(ValueF32(x / y))
	case wasm.OpF32Min:
		y, x := pop().F32(), pop().F32()
		push(ValueF32(fminF32(x, y)))
	case wasm.OpF32Max:
		y, x := pop().F32(), pop().F32()
		push(ValueF32(fmaxF32(x, y)))
	case wasm.OpF32Copysign:
		y, x := pop().F32(), pop().F32()
		push(ValueF32(float32(math.Copysign(float64(x), float64(y)))))

	// f64 arithmetic
	case wasm.OpF64Abs:
		push(ValueF64(math.Abs(pop().F64())))
	case wasm.OpF64Neg:
		push(ValueF64(-pop().F64()))
	case wasm.OpF64Ceil:
		push(ValueF64(math.Ceil(pop().F64())))
	case wasm.OpF64Floor:
		push(ValueF64(math.Floor(pop().F64())))
	case wasm.OpF64Trunc:
		push(ValueF64(math.Trunc(pop().F64())))
	case wasm.OpF64Nearest:
		push(ValueF64(math.RoundToEven(pop().F64())))
	case wasm.OpF64Sqrt:
		push(ValueF64(math.Sqrt(pop().F64())))
	case wasm.OpF64Add:
		y, x := pop().F64(), pop().F64()
		push(ValueF64(x + y))
	case wasm.OpF64Sub:
		y, x := pop().F64(), pop().F64()
		push(ValueF64(x - y))
	case wasm.OpF64Mul:
		y, x := pop().F64(), pop().F64()
		push(ValueF64(x * y))
	case wasm.OpF64Div:
		y, x := pop().F64(), pop().F64()
		push(ValueF64(x / y))
	case wasm.OpF64Min:
		y, x := pop().F64(), pop().F64()
		push(ValueF64(math.Min(x, y)))
	case wasm.OpF64Max:
		y, x := pop().F64(), pop().F64()
		push(ValueF64(math.Max(x, y)))
	case wasm.OpF64Copysign:
		y, x := pop().F64(), pop().F64()
		push(ValueF64(math.Copysign(x, y)))

	// conversions
	case wasm.OpI32WrapI64:
		push(ValueI32(int32(pop().I64())))
	case wasm.OpI32TruncF32S:
		t, err := truncChecked(float64(pop().F32()), math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		push(ValueI32(int32(t)))
	case wasm.OpI32TruncF32U:
		t, err := truncChecked(float64(pop().F32()), 0, math.MaxUint32)
		if err != nil {
			return err
		}
		push(ValueU32(uint32(t)))
	case wasm.OpI32TruncF64S:
		t, err := truncChecked(pop().F64(), math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		push(ValueI32(int32(t)))
	case wasm.OpI32TruncF64U:
		t, err := truncChecked(pop().F64(), 0, math.MaxUint32)
		if err != nil {
			return err
		}
		push(ValueU32(uint32(t)))
	case wasm.OpI64ExtendI32S:
		push(ValueI64(int64(pop().I32())))
	case wasm.OpI64ExtendI32U:
		push(ValueI64(int64(pop().U32())))
	case wasm.OpI64TruncF32S:
		t, err := truncChecked(float64(pop().F32()), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		push(ValueI64(int64(t)))
	case wasm.OpI64TruncF32U:
		t, err := truncChecked(float64(pop().F32()), 0, math.MaxUint64)
		if err != nil {
			return err
		}
		push(ValueU64(uint64(t)))
	case wasm.OpI64TruncF64S:
		t, err := truncChecked(pop().F64(), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		push(ValueI64(int64(t)))
	case wasm.OpI64TruncF64U:
		t, err := truncChecked(pop().F64(), 0, math.MaxUint64)
		if err != nil {
			return err
		}
		push(ValueU64(uint64(t)))
	case wasm.OpF32ConvertI32S:
		push(ValueF32(float32(pop().I32())))
	case wasm.OpF32ConvertI32U:
		push(ValueF32(float32(pop().U32())))
	case wasm.OpF32ConvertI64S:
		push(ValueF32(float32(pop().I64())))
	case wasm.OpF32ConvertI64U:
		push(ValueF32(float32(pop().U64())))
	case wasm.OpF32DemoteF64:
		push(ValueF32(float32(pop().F64())))
	case wasm.OpF64ConvertI32S:
		push(ValueF64(float64(pop().I32())))
	case wasm.OpF64ConvertI32U:
		push(ValueF64(float64(pop().U32())))
	case wasm.OpF64ConvertI64S:
		push(ValueF64(float64(pop().I64())))
	case wasm.OpF64ConvertI64U:
		push(ValueF64(float64(pop().U64())))
	case wasm.OpF64PromoteF32:
		push(ValueF64(float64(pop().F32())))
	case wasm.OpI32ReinterpretF32:
		push(Value(uint32frombits(pop().F32())))
	case wasm.OpI64ReinterpretF64:
		push(ValueU64(math.Float64bits(pop().F64())))
	case wasm.OpF32ReinterpretI32:
		push(ValueF32(math.Float32frombits(pop().U32())))
	case wasm.OpF64ReinterpretI64:
		push(ValueF64(math.Float64frombits(pop().U64())))

	// sign extension
	case wasm.OpI32Extend8S:
		push(ValueI32(int32(int8(pop().I32()))))
	case wasm.OpI32Extend16S:
		push(ValueI32(int32(int16(pop().I32()))))
	case wasm.OpI64Extend8S:
		push(ValueI64(int64(int8(pop().I64()))))
	case wasm.OpI64Extend16S:
		push(ValueI64(int64(int16(pop().I64()))))
	case wasm.OpI64Extend32S:
		push(ValueI64(int64(int32(pop().I64()))))

	default:
		return werrors.New(werrors.PhaseRuntime, werrors.KindUnknownOpcode, "unhandled opcode 0x%02x at runtime", byte(op))
	}
	return nil
}

func uint32frombits(f float32) uint32 { return math.Float32bits(f) }

// execTruncSat implements the non-trapping saturating truncation family
// (the 0xFC-prefixed opcodes): NaN saturates to 0, and an out-of-range
// value saturates to the nearest representable bound instead of
// trapping.
func execTruncSat(sub wasm.Opcode, stackp *[]Value) error {
	stack := *stackp
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(v Value) { stack = append(stack, v) }
	defer func() { *stackp = stack }()

	satS := func(f float64, lo, hi, min, max int64) int64 {
		if math.IsNaN(f) {
			return 0
		}
		t := math.Trunc(f)
		if t < lo {
			return min
		}
		if t > hi {
			return max
		}
		return int64(t)
	}
	satU := func(f float64, hi float64, max uint64) uint64 {
		if math.IsNaN(f) || f < 0 {
			return 0
		}
		t := math.Trunc(f)
		if t > hi {
			return max
		}
		return uint64(t)
	}

	switch sub {
	case wasm.OpMiscI32TruncSatF32S:
		push(ValueI32(int32(satS(float64(pop().F32()), math.MinInt32, math.MaxInt32, math.MinInt32, math.MaxInt32))))
	case wasm.OpMiscI32TruncSatF32U:
		push(ValueU32(uint32(satU(float64(pop().F32()), math.MaxUint32, math.MaxUint32))))
	case wasm.OpMiscI32TruncSatF64S:
		push(ValueI32(int32(satS(pop().F64(), math.MinInt32, math.MaxInt32, math.MinInt32, math.MaxInt32))))
	case wasm.OpMiscI32TruncSatF64U:
		push(ValueU32(uint32(satU(pop().F64(), math.MaxUint32, math.MaxUint32))))
	case wasm.OpMiscI64TruncSatF32S:
		push(ValueI64(satS(float64(pop().F32()), math.MinInt64, math.MaxInt64, math.MinInt64, math.MaxInt64)))
	case wasm.OpMiscI64TruncSatF32U:
		push(ValueU64(satU(float64(pop().F32()), math.MaxUint64, math.MaxUint64)))
	case wasm.OpMiscI64TruncSatF64S:
		push(ValueI64(satS(pop().F64(), math.MinInt64, math.MaxInt64, math.MinInt64, math.MaxInt64)))
	case wasm.OpMiscI64TruncSatF64U:
		push(ValueU64(satU(pop().F64(), math.MaxUint64, math.MaxUint64)))
	default:
		return werrors.New(werrors.PhaseRuntime, werrors.KindUnknownOpcode, "unknown trunc_sat sub-opcode %d", sub)
	}
	return nil
}

func trapDivZero() error {
	return werrors.New(werrors.PhaseRuntime, werrors.KindIntegerDivideByZero, "integer division by zero")
}

func trapIntOverflow() error {
	return werrors.New(werrors.PhaseRuntime, werrors.KindIntegerOverflow, "signed integer overflow")
}

func trapInvalidConversion() error {
	return werrors.New(werrors.PhaseRuntime, werrors.KindInvalidConversionToInt, "invalid or out-of-range integer conversion")
}

func fminF32(x, y float32) float32 {
	return float32(math.Min(float64(x), float64(y)))
}
func fmaxF32(x, y float32) float32 {
	return float32(math.Max(float64(x), float64(y)))
}

// truncChecked implements the non-saturating trunc family: it traps
// (KindInvalidConversionToInt) on NaN, infinities, or a value whose
// truncation falls outside [lo, hi], mirroring the non-saturating
// opcodes' spec'd behavior; the *_trunc_sat_* family (execTruncSat)
// clamps instead.
func truncChecked(f float64, lo, hi float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, trapInvalidConversion()
	}
	t := math.Trunc(f)
	if t < lo || t > hi {
		return 0, trapInvalidConversion()
	}
	return t, nil
}
