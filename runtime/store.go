package runtime

import (
	"context"

	"github.com/jasonwyatt/wasmkit/wasm"
)

// TableInstance is a module's table: a dense slice of function addresses
// (or -1 for a null entry), grown only by explicit element segments at
// instantiation in this 1.0 engine (table.grow is a later proposal).
type TableInstance struct {
	Elems []int64
	Max   *uint32
}

// GlobalInstance is a module-defined or imported global's live storage
// cell.
type GlobalInstance struct {
	Type  wasm.GlobalType
	Value Value
}

// HostFunc is a function implemented by the embedder rather than by Wasm
// bytecode. It receives already-validated arguments and linear memory
// access for the calling instance, and returns results or a trap.
type HostFunc func(ctx context.Context, mem *MemoryInstance, args []Value) ([]Value, error)

// FunctionInstance is either a Wasm-defined function (Module/Body set) or
// a host function (Host set) sharing one type signature.
type FunctionInstance struct {
	Type   wasm.FuncType
	Module *ModuleInstance // nil for host functions
	Body   wasm.FuncBody
	Host   HostFunc
}

// IsHost reports whether this function is implemented by the host.
func (f *FunctionInstance) IsHost() bool { return f.Host != nil }

// ExportInstance is one entry of a module instance's export map.
type ExportInstance struct {
	Kind wasm.ExternKind
	Addr uint32
}

// ModuleInstance is the runtime incarnation of a Module: its import-
// resolved address spaces (function/table/memory/global) plus its export
// map, all addresses into the owning Store's arenas.
type ModuleInstance struct {
	Types       []wasm.FuncType
	FuncAddrs   []uint32
	TableAddrs  []uint32
	MemAddrs    []uint32
	GlobalAddrs []uint32
	Exports     map[string]ExportInstance
}

// Store owns every live function, table, memory, and global instance
// across every module instantiated against it — the four address-indexed
// arenas spec.md §4.G describes.
type Store struct {
	funcs   arena[FunctionInstance]
	tables  arena[TableInstance]
	mems    arena[MemoryInstance]
	globals arena[GlobalInstance]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) AllocFunc(f FunctionInstance) uint32     { return s.funcs.alloc(f) }
func (s *Store) AllocTable(t TableInstance) uint32        { return s.tables.alloc(t) }
func (s *Store) AllocMemory(m MemoryInstance) uint32      { return s.mems.alloc(m) }
func (s *Store) AllocGlobal(g GlobalInstance) uint32      { return s.globals.alloc(g) }

func (s *Store) Func(addr uint32) *FunctionInstance   { return s.funcs.get(addr) }
func (s *Store) Table(addr uint32) *TableInstance     { return s.tables.get(addr) }
func (s *Store) Memory(addr uint32) *MemoryInstance   { return s.mems.get(addr) }
func (s *Store) Global(addr uint32) *GlobalInstance   { return s.globals.get(addr) }

func (s *Store) NumFuncs() int   { return s.funcs.len() }
func (s *Store) NumTables() int  { return s.tables.len() }
func (s *Store) NumMemories() int { return s.mems.len() }
func (s *Store) NumGlobals() int { return s.globals.len() }
