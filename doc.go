// Package wasmkit is a from-scratch WebAssembly 1.0 core specification
// engine: it parses binary and text modules, statically validates them,
// links them against host functions and each other, and runs them on a
// small stack-machine interpreter. It makes no attempt at the Component
// Model, WASI, or any post-1.0 proposal beyond non-trapping saturating
// truncation and sign-extension operators.
//
// # Architecture Overview
//
// The engine is organized into packages with distinct responsibilities:
//
//	wasmkit/          Root package: host-facing Memory/Allocator conventions, Config
//	├── wasm/         Binary codec, the abstract Module model, the validator
//	├── wat/          Text format parser producing the same Module model
//	├── runtime/      Store, linear memory, and the interpreter
//	├── linker/       Module/host-module registration, import resolution, Build
//	├── api/          Public value/extern type vocabulary and host function shape
//	├── errors/       Structured error type shared by every phase
//	└── cmd/wasmkit/  CLI: run, validate, inspect, and an interactive repl
//
// # Quick Start
//
//	b := linker.NewBuilder()
//	mod, err := wasm.ParseModule(wasmBytes) // or wat.Compile(text)
//	if err != nil { log.Fatal(err) }
//	if err := mod.Validate(); err != nil { log.Fatal(err) }
//	if err := b.Register("main", mod); err != nil { log.Fatal(err) }
//
//	prog, err := b.Build(ctx, runtime.DefaultLimits)
//	if err != nil { log.Fatal(err) }
//
//	results, err := prog.Call(ctx, "main", "add", []runtime.Value{runtime.ValueI32(1), runtime.ValueI32(2)})
//
// # Host Functions
//
// Register a host module before Build so guest imports can resolve against it:
//
//	b.RegisterHostModule(&linker.HostModule{
//	    Name: "env",
//	    Funcs: map[string]linker.HostFunc{
//	        "log": {
//	            Type: wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}},
//	            Func: func(ctx context.Context, mem *runtime.MemoryInstance, args []runtime.Value) ([]runtime.Value, error) {
//	                msg, err := mem.Read(uint32(args[0].I32()), uint32(args[1].I32()))
//	                if err != nil { return nil, err }
//	                fmt.Println(string(msg))
//	                return nil, nil
//	            },
//	        },
//	    },
//	})
//
// # Thread Safety
//
// A Store and the Interpreter bound to it are not safe for concurrent
// calls into the same module instance; serialize calls per instance, or
// give each goroutine its own Program.
//
// # Memory Model
//
// Linear memory can only grow, never shrink, per the WebAssembly 1.0
// specification; memory.grow returns -1 on failure rather than trapping.
package wasmkit
