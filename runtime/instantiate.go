package runtime

import (
	"context"

	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/wasm"
)

// ResolvedImport is one import already matched to a concrete store
// address by the linker, tagged with its kind so Instantiate can place it
// in the right address space.
type ResolvedImport struct {
	Kind wasm.ExternKind
	Addr uint32
}

// Instantiate allocates store entries for every function, table, memory,
// and global m defines, wires up the supplied already-resolved imports in
// front of them (spec.md §4.J: "imported instances occupy the low
// addresses of each index space"), evaluates global initializers and
// active element/data segments, and runs the start function if present.
func Instantiate(ctx context.Context, store *Store, interp *Interpreter, m *wasm.Module, imports []ResolvedImport) (*ModuleInstance, error) {
	inst := &ModuleInstance{
		Types:   m.Types,
		Exports: make(map[string]ExportInstance, len(m.Exports)),
	}

	for i, imp := range m.Imports {
		resolved := imports[i]
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			inst.FuncAddrs = append(inst.FuncAddrs, resolved.Addr)
		case wasm.KindTable:
			inst.TableAddrs = append(inst.TableAddrs, resolved.Addr)
		case wasm.KindMemory:
			inst.MemAddrs = append(inst.MemAddrs, resolved.Addr)
		case wasm.KindGlobal:
			inst.GlobalAddrs = append(inst.GlobalAddrs, resolved.Addr)
		}
	}

	// Globals must be allocated (and their initializers evaluated) before
	// function bodies are, since a constant expression may reference an
	// already-allocated imported global, and functions reference globals
	// only by index at call time, not at allocation time.
	for _, g := range m.Globals {
		val, err := evalConstExpr(inst, store, g.Init)
		if err != nil {
			return nil, err
		}
		addr := store.AllocGlobal(GlobalInstance{Type: g.Type, Value: val})
		inst.GlobalAddrs = append(inst.GlobalAddrs, addr)
	}

	for _, typeIdx := range m.Funcs {
		addr := store.AllocFunc(FunctionInstance{
			Type:   m.Types[typeIdx],
			Module: inst,
		})
		inst.FuncAddrs = append(inst.FuncAddrs, addr)
	}
	// Function bodies are attached in a second pass, through the arena
	// entry store.Func returns for each address allocated above.
	nImportedFuncs := m.NumImportedFuncs()
	for i, body := range m.Code {
		addr := inst.FuncAddrs[nImportedFuncs+i]
		fn := store.Func(addr)
		fn.Body = body
	}

	for _, t := range m.Tables {
		addr := store.AllocTable(TableInstance{Elems: newNullTable(t.Limits.Min), Max: t.Limits.Max})
		inst.TableAddrs = append(inst.TableAddrs, addr)
	}

	for _, memT := range m.Memories {
		addr := store.AllocMemory(*NewMemoryInstance(memT.Limits.Min, memT.Limits.Max))
		inst.MemAddrs = append(inst.MemAddrs, addr)
	}

	for _, el := range m.Elements {
		offsetVal, err := evalConstExpr(inst, store, el.Offset)
		if err != nil {
			return nil, err
		}
		offset := uint32(offsetVal.I32())
		table := store.Table(inst.TableAddrs[el.TableIdx])
		if int(offset)+len(el.Funcs) > len(table.Elems) {
			return nil, werrors.New(werrors.PhaseInstantiate, werrors.KindSegmentOutOfRange, "element segment at offset %d overruns table of size %d", offset, len(table.Elems))
		}
		for i, funcIdx := range el.Funcs {
			table.Elems[int(offset)+i] = int64(inst.FuncAddrs[funcIdx])
		}
	}

	for _, d := range m.Data {
		offsetVal, err := evalConstExpr(inst, store, d.Offset)
		if err != nil {
			return nil, err
		}
		offset := uint32(offsetVal.I32())
		mem := store.Memory(inst.MemAddrs[d.MemIdx])
		if err := mem.Write(offset, d.Bytes); err != nil {
			return nil, werrors.Wrap(werrors.PhaseInstantiate, werrors.KindSegmentOutOfRange, err, "data segment at offset %d overruns memory", offset)
		}
	}

	for _, e := range m.Exports {
		var addr uint32
		switch e.Kind {
		case wasm.KindFunc:
			addr = inst.FuncAddrs[e.Idx]
		case wasm.KindTable:
			addr = inst.TableAddrs[e.Idx]
		case wasm.KindMemory:
			addr = inst.MemAddrs[e.Idx]
		case wasm.KindGlobal:
			addr = inst.GlobalAddrs[e.Idx]
		}
		inst.Exports[e.Name] = ExportInstance{Kind: e.Kind, Addr: addr}
	}

	if m.Start != nil {
		startAddr := inst.FuncAddrs[*m.Start]
		if _, err := interp.Call(ctx, startAddr, nil); err != nil {
			return nil, werrors.Wrap(werrors.PhaseInstantiate, werrors.KindInitializerTrap, err, "start function trapped")
		}
	}

	return inst, nil
}

func newNullTable(size uint32) []int64 {
	elems := make([]int64, size)
	for i := range elems {
		elems[i] = -1
	}
	return elems
}

// evalConstExpr evaluates a constant expression (a global initializer or
// an element/data segment offset) using the already-allocated globals it
// may reference — the interpreter is not needed since constant
// expressions are restricted to *const and global.get of an imported
// immutable global (spec.md §4.F).
func evalConstExpr(inst *ModuleInstance, store *Store, instrs []wasm.Instruction) (Value, error) {
	// instrs always ends with `end`; the constant-expression grammar
	// guarantees exactly one producing instruction before it.
	for _, instr := range instrs {
		switch imm := instr.Imm.(type) {
		case wasm.ConstI32Imm:
			return ValueI32(imm.Value), nil
		case wasm.ConstI64Imm:
			return ValueI64(imm.Value), nil
		case wasm.ConstF32Imm:
			return ValueF32(imm.Value), nil
		case wasm.ConstF64Imm:
			return ValueF64(imm.Value), nil
		case wasm.GlobalImm:
			return store.Global(inst.GlobalAddrs[imm.Idx]).Value, nil
		}
	}
	return 0, werrors.New(werrors.PhaseInstantiate, werrors.KindNonConstantInitializer, "constant expression produced no value")
}
