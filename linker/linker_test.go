package linker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/linker"
	"github.com/jasonwyatt/wasmkit/runtime"
	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat"
)

func TestBuildResolvesCrossModuleImport(t *testing.T) {
	producer, err := wat.Compile(`
	(module
	  (func $answer (result i32) (i32.const 42))
	  (export "answer" (func $answer)))
	`)
	require.NoError(t, err)
	consumer, err := wat.Compile(`
	(module
	  (import "producer" "answer" (func $answer (result i32)))
	  (func $double (result i32) (i32.mul (call $answer) (i32.const 2)))
	  (export "double" (func $double)))
	`)
	require.NoError(t, err)

	b := linker.NewBuilder()
	require.NoError(t, b.Register("producer", producer))
	require.NoError(t, b.Register("consumer", consumer))
	prog, err := b.Build(context.Background(), runtime.DefaultLimits)
	require.NoError(t, err)

	results, err := prog.Call(context.Background(), "consumer", "double", nil)
	require.NoError(t, err)
	require.EqualValues(t, 84, results[0].I32())
}

func TestBuildDetectsCyclicImports(t *testing.T) {
	a, err := wat.Compile(`
	(module
	  (import "b" "f" (func $bf))
	  (func $af (call $bf))
	  (export "f" (func $af)))
	`)
	require.NoError(t, err)
	b2, err := wat.Compile(`
	(module
	  (import "a" "f" (func $af))
	  (func $bf (call $af))
	  (export "f" (func $bf)))
	`)
	require.NoError(t, err)

	b := linker.NewBuilder()
	require.NoError(t, b.Register("a", a))
	require.NoError(t, b.Register("b", b2))
	_, err = b.Build(context.Background(), runtime.DefaultLimits)
	require.Error(t, err)
	var werr *werrors.Error
	require.ErrorAs(t, err, &werr)
	require.Equal(t, werrors.KindCyclicImports, werr.Kind)
}

func TestHostModuleSatisfiesImport(t *testing.T) {
	consumer, err := wat.Compile(`
	(module
	  (import "env" "add" (func $add (param i32 i32) (result i32)))
	  (func $run (result i32) (call $add (i32.const 3) (i32.const 4)))
	  (export "run" (func $run)))
	`)
	require.NoError(t, err)

	b := linker.NewBuilder()
	require.NoError(t, b.RegisterHostModule(&linker.HostModule{
		Name: "env",
		Funcs: map[string]linker.HostFunc{
			"add": {
				Type: wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
				Func: func(ctx context.Context, mem *runtime.MemoryInstance, args []runtime.Value) ([]runtime.Value, error) {
					return []runtime.Value{runtime.ValueI32(args[0].I32() + args[1].I32())}, nil
				},
			},
		},
	}))
	require.NoError(t, b.Register("consumer", consumer))
	prog, err := b.Build(context.Background(), runtime.DefaultLimits)
	require.NoError(t, err)

	results, err := prog.Call(context.Background(), "consumer", "run", nil)
	require.NoError(t, err)
	require.EqualValues(t, 7, results[0].I32())
}
