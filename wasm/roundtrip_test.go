package wasm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat"
)

// A module compiled from text, re-encoded to binary, and re-parsed must
// validate and expose the same shape: spec.md §8's binary round-trip and
// text/binary equivalence properties.
func TestTextToBinaryRoundTrip(t *testing.T) {
	src := `
	(module
	  (type $binop (func (param i32 i32) (result i32)))
	  (import "env" "log" (func $log (param i32)))
	  (memory 1 4)
	  (global $g (mut i32) (i32.const 10))
	  (func $add (type $binop) (i32.add (local.get 0) (local.get 1)))
	  (func $bump
	    (global.set $g (i32.add (global.get $g) (i32.const 1)))
	    (call $log (global.get $g)))
	  (export "add" (func $add))
	  (export "bump" (func $bump))
	  (export "mem" (memory 0)))
	`
	m, err := wat.Compile(src)
	require.NoError(t, err)

	data, err := m.Encode()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	m2, err := wasm.ParseModule(data)
	require.NoError(t, err)
	require.NoError(t, m2.Validate())

	require.Equal(t, m.NumFuncs(), m2.NumFuncs())
	require.Equal(t, len(m.Exports), len(m2.Exports))
	require.Equal(t, len(m.Types), len(m2.Types))

	data2, err := m2.Encode()
	require.NoError(t, err)
	require.Equal(t, data, data2, "re-encoding a decoded module must reproduce the same bytes")
}

func TestValidateRejectsTypeMismatch(t *testing.T) {
	src := `
	(module
	  (func $bad (result i32) (i32.const 1) (f32.const 1.0)))
	`
	_, err := wat.Compile(src)
	require.Error(t, err, "a func whose value stack doesn't match its declared result type must be rejected")
}

func TestValidateRejectsUnknownLocal(t *testing.T) {
	src := `
	(module
	  (func $bad (result i32) (local.get 5)))
	`
	_, err := wat.Compile(src)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateExport(t *testing.T) {
	src := `
	(module
	  (func $a (result i32) (i32.const 1))
	  (func $b (result i32) (i32.const 2))
	  (export "f" (func $a))
	  (export "f" (func $b)))
	`
	_, err := wat.Compile(src)
	require.Error(t, err)
}
