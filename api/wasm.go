// Package api holds the vocabulary an embedder uses to describe guest
// function signatures and host functions, independent of the wasm/runtime
// package internals.
package api

import (
	"github.com/jasonwyatt/wasmkit/runtime"
	"github.com/jasonwyatt/wasmkit/wasm"
)

// ValueType is re-exported from wasm so embedders don't need to import
// the wasm package just to spell out a function signature.
type ValueType = wasm.ValType

const (
	ValueTypeI32 = wasm.ValI32
	ValueTypeI64 = wasm.ValI64
	ValueTypeF32 = wasm.ValF32
	ValueTypeF64 = wasm.ValF64
)

// ValueTypeName returns a human name for t, or "unknown" if t isn't one
// of the four WebAssembly 1.0 number types.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "unknown"
	}
}

// ExternType classifies an import or export by the kind of thing it
// names: a function, table, memory, or global.
type ExternType = wasm.ExternKind

const (
	ExternTypeFunc   = wasm.KindFunc
	ExternTypeTable  = wasm.KindTable
	ExternTypeMemory = wasm.KindMemory
	ExternTypeGlobal = wasm.KindGlobal
)

// ExternTypeName returns the WebAssembly text format field name for et.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Memory is the host-facing view of a module instance's linear memory. It
// is satisfied by *runtime.MemoryInstance; host functions receive one
// directly rather than needing to import the runtime package.
type Memory interface {
	Read(offset, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	Size() uint32
}

// GoFunc is the signature every host function implementation has: a
// context, the calling instance's linear memory (nil if the instance has
// none), and the raw argument values, returning raw result values or an
// error that aborts the call as a trap. It is an alias for runtime.HostFunc
// so values of either name assign to the other without conversion.
type GoFunc = runtime.HostFunc

// EncodeI32 reinterprets v's bits as a Value, for building argument
// slices without importing runtime directly.
func EncodeI32(v int32) runtime.Value { return runtime.ValueI32(v) }

// EncodeI64 reinterprets v's bits as a Value.
func EncodeI64(v int64) runtime.Value { return runtime.ValueI64(v) }

// EncodeF32 reinterprets v's bits as a Value.
func EncodeF32(v float32) runtime.Value { return runtime.ValueF32(v) }

// EncodeF64 reinterprets v's bits as a Value.
func EncodeF64(v float64) runtime.Value { return runtime.ValueF64(v) }

// DecodeI32 extracts an int32 from v.
func DecodeI32(v runtime.Value) int32 { return v.I32() }

// DecodeI64 extracts an int64 from v.
func DecodeI64(v runtime.Value) int64 { return v.I64() }

// DecodeF32 extracts a float32 from v.
func DecodeF32(v runtime.Value) float32 { return v.F32() }

// DecodeF64 extracts a float64 from v.
func DecodeF64(v runtime.Value) float64 { return v.F64() }
