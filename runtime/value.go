// Package runtime implements the store, linear memory, activation stack,
// and stack-machine interpreter that execute a validated module.
package runtime

import "math"

// Value is a single operand-stack/local/global slot. Every WebAssembly
// 1.0 numeric type fits in 64 bits; floats are stored as their raw IEEE
// bit pattern so the stack never needs to be type-tagged — the validator
// already proved every access is well-typed.
type Value uint64

func ValueI32(v int32) Value  { return Value(uint32(v)) }
func ValueU32(v uint32) Value { return Value(v) }
func ValueI64(v int64) Value  { return Value(uint64(v)) }
func ValueU64(v uint64) Value { return Value(v) }
func ValueF32(v float32) Value { return Value(math.Float32bits(v)) }
func ValueF64(v float64) Value { return Value(math.Float64bits(v)) }

func (v Value) I32() int32   { return int32(uint32(v)) }
func (v Value) U32() uint32  { return uint32(v) }
func (v Value) I64() int64   { return int64(v) }
func (v Value) U64() uint64  { return uint64(v) }
func (v Value) F32() float32 { return math.Float32frombits(uint32(v)) }
func (v Value) F64() float64 { return math.Float64frombits(uint64(v)) }
