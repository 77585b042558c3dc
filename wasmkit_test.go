package wasmkit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jasonwyatt/wasmkit"
	"github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/linker"
	"github.com/jasonwyatt/wasmkit/runtime"
	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat"
)

// fibonacci, text source: spec.md §8's literal scenario.
func TestFibonacciTextSource(t *testing.T) {
	src := `
	(module
	  (func $fib (param $n i32) (result i32)
	    (if (result i32) (i32.lt_s (local.get $n) (i32.const 2))
	      (then (i32.const 1))
	      (else
	        (i32.add
	          (call $fib (i32.sub (local.get $n) (i32.const 1)))
	          (call $fib (i32.sub (local.get $n) (i32.const 2)))))))
	  (export "fib" (func $fib)))
	`
	m, err := wat.Compile(src)
	require.NoError(t, err)

	rt := wasmkit.New()
	require.NoError(t, rt.LoadModule("main", m))
	prog, err := rt.Build(context.Background())
	require.NoError(t, err)

	cases := map[int32]int32{0: 1, 1: 1, 2: 2, 10: 89, 20: 10946}
	for n, want := range cases {
		results, err := prog.Call(context.Background(), "main", "fib", []runtime.Value{runtime.ValueI32(n)})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, want, results[0].I32(), "fib(%d)", n)
	}
}

// Memory store + host readback: spec.md §8's literal scenario.
func TestMemoryStoreAndHostReadback(t *testing.T) {
	src := `
	(module
	  (import "host" "fn" (func $hostfn (param i32)))
	  (memory 1)
	  (func $start
	    (i32.store (i32.const 12) (i32.const 42))
	    (call $hostfn (i32.load (i32.const 12))))
	  (start $start))
	`
	m, err := wat.Compile(src)
	require.NoError(t, err)

	var received int32
	rt := wasmkit.New()
	require.NoError(t, rt.RegisterHostModule(&linker.HostModule{
		Name: "host",
		Funcs: map[string]linker.HostFunc{
			"fn": {
				Type: wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}},
				Func: func(ctx context.Context, mem *runtime.MemoryInstance, args []runtime.Value) ([]runtime.Value, error) {
					received = args[0].I32()
					return nil, nil
				},
			},
		},
	}))
	require.NoError(t, rt.LoadModule("main", m))
	_, err = rt.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(42), received)
}

// Saturating truncation: spec.md §8's literal scenario.
func TestSaturatingTruncation(t *testing.T) {
	src := `
	(module
	  (func $f (param $x f32) (result i32)
	    (i32.trunc_sat_f32_s (local.get $x)))
	  (export "f" (func $f)))
	`
	m, err := wat.Compile(src)
	require.NoError(t, err)
	rt := wasmkit.New()
	require.NoError(t, rt.LoadModule("main", m))
	prog, err := rt.Build(context.Background())
	require.NoError(t, err)

	posInf := float32(1)
	for posInf*2 != posInf {
		posInf *= 2
	}
	negInf := -posInf
	nan := posInf - posInf // NaN

	cases := []struct {
		in   float32
		want int32
	}{
		{posInf, 0x7FFFFFFF},
		{negInf, -0x80000000},
		{nan, 0},
	}
	for _, c := range cases {
		results, err := prog.Call(context.Background(), "main", "f", []runtime.Value{runtime.ValueF32(c.in)})
		require.NoError(t, err)
		require.Equal(t, c.want, results[0].I32())
	}
}

// Indirect call mismatch traps: spec.md §8's literal scenario.
func TestIndirectCallMismatchTraps(t *testing.T) {
	src := `
	(module
	  (type $i32_to_i32 (func (result i32)))
	  (type $mismatch (func (result i64)))
	  (func $f (result i32) (i32.const 7))
	  (table 1 funcref)
	  (elem (i32.const 0) $f)
	  (func $call_mismatched (result i64)
	    (call_indirect (type $mismatch) (i32.const 0)))
	  (export "call_mismatched" (func $call_mismatched)))
	`
	m, err := wat.Compile(src)
	require.NoError(t, err)
	rt := wasmkit.New()
	require.NoError(t, rt.LoadModule("main", m))
	prog, err := rt.Build(context.Background())
	require.NoError(t, err)

	_, err = prog.Call(context.Background(), "main", "call_mismatched", nil)
	require.Error(t, err)
}

// Import shape mismatch: spec.md §8's literal scenario.
func TestImportShapeMismatch(t *testing.T) {
	producer := `
	(module
	  (func $memory (result i32) (i32.const 0))
	  (export "memory" (func $memory)))
	`
	consumer := `
	(module
	  (import "producer" "memory" (memory 1)))
	`
	mp, err := wat.Compile(producer)
	require.NoError(t, err)
	mc, err := wat.Compile(consumer)
	require.NoError(t, err)

	rt := wasmkit.New()
	require.NoError(t, rt.LoadModule("producer", mp))
	require.NoError(t, rt.LoadModule("consumer", mc))
	_, err = rt.Build(context.Background())
	require.Error(t, err)
	var werr *errors.Error
	require.ErrorAs(t, err, &werr)
	require.Equal(t, errors.KindWrongExportKind, werr.Kind)
}

// Immutable global write rejected: spec.md §8's literal scenario.
func TestImmutableGlobalWriteRejected(t *testing.T) {
	src := `
	(module
	  (global $g i32 (i32.const 1))
	  (export "g" (global $g))
	  (func $set (global.set $g (i32.const 2)))
	  (export "set" (func $set)))
	`
	_, err := wat.Compile(src)
	require.Error(t, err, "assigning to an immutable global must be rejected at validation time")
}

// A dynamic index near the top of the 32-bit address space plus a
// nonzero memarg offset must trap as out-of-bounds rather than wrap
// around into a small, seemingly valid address.
func TestMemoryAddressOverflowTraps(t *testing.T) {
	src := `
	(module
	  (memory 1)
	  (func $f (param $i i32) (result i32)
	    (i32.load offset=16 (local.get $i)))
	  (export "f" (func $f)))
	`
	m, err := wat.Compile(src)
	require.NoError(t, err)
	rt := wasmkit.New()
	require.NoError(t, rt.LoadModule("main", m))
	prog, err := rt.Build(context.Background())
	require.NoError(t, err)

	_, err = prog.Call(context.Background(), "main", "f", []runtime.Value{runtime.ValueI32(-1)})
	require.Error(t, err, "index 0xFFFFFFFF + offset 16 must trap instead of wrapping to address 15")
}
