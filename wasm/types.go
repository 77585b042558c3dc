// Package wasm implements the WebAssembly 1.0 binary format: the LEB128
// and primitive codec, the binary parser and encoder, the abstract module
// model shared with the text format, and the static validator.
package wasm

// FuncType is a function signature: zero or more parameter types mapping
// to zero or more result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether ft and other have identical params and results.
func (ft FuncType) Equal(other FuncType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i := range ft.Params {
		if ft.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range ft.Results {
		if ft.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// Limits bounds a table or memory's size, in table elements or 64KiB pages
// respectively.
type Limits struct {
	Max *uint32
	Min uint32
}

// TableType describes a table of a given element type and size limits.
// 1.0 supports only funcref tables.
type TableType struct {
	Limits  Limits
	ElemType ValType
}

// MemoryType describes a linear memory's size limits, in pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	Val     ValType
	Mutable bool
}

// ImportDesc is the tagged union of what an import resolves to.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx uint32 // valid when Kind == KindFunc
	Kind    ExternKind
}

// Import is a single entry of the import section: module.name plus what
// it must resolve to.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// Export is a single entry of the export section: a name plus the index
// of the internal (or re-exported-import) entity of the given kind.
type Export struct {
	Name string
	Kind ExternKind
	Idx  uint32
}

// Global is a module-defined global: its type plus a constant-expression
// initializer, stored as an already-decoded instruction stream. It is
// evaluated by runtime's evalConstExpr, which reads its single const or
// global.get instruction directly; the interpreter does not run it.
type Global struct {
	Type GlobalType
	Init []Instruction
}

// LocalEntry is a run-length-encoded group of local variable declarations
// in a function body (the same ValType repeated Count times).
type LocalEntry struct {
	Count uint32
	Type  ValType
}

// FuncBody is the decoded body of one code-section entry: its local
// variable groups plus the flattened, branch-target-resolved instruction
// stream.
type FuncBody struct {
	Locals []LocalEntry
	Code   []Instruction
}

// NumLocals returns the total count of declared locals (not parameters).
func (f FuncBody) NumLocals() int {
	n := 0
	for _, l := range f.Locals {
		n += int(l.Count)
	}
	return n
}

// Element is an active element segment: a table index, a constant-
// expression offset, and a sequence of function indices.
type Element struct {
	Offset  []Instruction
	Funcs   []uint32
	TableIdx uint32
}

// DataSegment is an active data segment: a memory index, a constant-
// expression offset, and raw bytes.
type DataSegment struct {
	Offset []Instruction
	Bytes  []byte
	MemIdx uint32
}

// CustomSection preserves an unparsed custom section by name, so that a
// round-tripped module re-encodes with the same custom sections in the
// same relative order.
type CustomSection struct {
	Name string
	Data []byte
}

// Module is the single abstract representation produced by both the
// binary parser and the text parser, consumed by both the validator and
// the binary encoder.
type Module struct {
	Types   []FuncType
	Imports []Import
	// Funcs holds, for each module-defined function (not imports), the
	// index into Types.
	Funcs    []uint32
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elements []Element
	Code     []FuncBody
	Data     []DataSegment
	// DataCount, if non-nil, is the value of an explicit data count
	// section (section 12 in the full proposal set). ParseModule and the
	// text parser never set it, and Encode does not emit it.
	DataCount      *uint32
	CustomSections []CustomSection

	// names maps identifiers encountered during text-format parsing back
	// to this module's indices. The text parser fills FuncNames,
	// TypeNames and GlobalNames; no other code reads any of these maps.
	FuncNames   map[string]uint32
	TypeNames   map[string]uint32
	TableNames  map[string]uint32
	MemNames    map[string]uint32
	GlobalNames map[string]uint32
}

// NumImportedFuncs returns how many of Imports are function imports.
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			n++
		}
	}
	return n
}

// NumImportedTables returns how many of Imports are table imports.
func (m *Module) NumImportedTables() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindTable {
			n++
		}
	}
	return n
}

// NumImportedMemories returns how many of Imports are memory imports.
func (m *Module) NumImportedMemories() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory {
			n++
		}
	}
	return n
}

// NumImportedGlobals returns how many of Imports are global imports.
func (m *Module) NumImportedGlobals() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindGlobal {
			n++
		}
	}
	return n
}

// NumFuncs returns the total function space: imported plus defined.
func (m *Module) NumFuncs() int {
	return m.NumImportedFuncs() + len(m.Funcs)
}

// NumTables returns the total table space: imported plus defined.
func (m *Module) NumTables() int {
	return m.NumImportedTables() + len(m.Tables)
}

// NumMemories returns the total memory space: imported plus defined.
func (m *Module) NumMemories() int {
	return m.NumImportedMemories() + len(m.Memories)
}

// NumGlobals returns the total global space: imported plus defined.
func (m *Module) NumGlobals() int {
	return m.NumImportedGlobals() + len(m.Globals)
}

// FuncTypeIdx returns the index into Types of the funcIdx'th function in
// the combined import+defined function space, or false if out of range.
func (m *Module) FuncTypeIdx(funcIdx uint32) (uint32, bool) {
	nImported := uint32(m.NumImportedFuncs())
	if funcIdx < nImported {
		i := -1
		for idx, imp := range m.Imports {
			if imp.Desc.Kind != KindFunc {
				continue
			}
			i++
			if uint32(i) == funcIdx {
				return imp.Desc.TypeIdx, true
			}
			_ = idx
		}
		return 0, false
	}
	definedIdx := funcIdx - nImported
	if int(definedIdx) >= len(m.Funcs) {
		return 0, false
	}
	return m.Funcs[definedIdx], true
}

// GetFuncType resolves a function index to its signature, or false if the
// index or its referenced type index is out of range.
func (m *Module) GetFuncType(funcIdx uint32) (FuncType, bool) {
	typeIdx, ok := m.FuncTypeIdx(funcIdx)
	if !ok || int(typeIdx) >= len(m.Types) {
		return FuncType{}, false
	}
	return m.Types[typeIdx], true
}

// AddType appends ft to Types, reusing an existing structurally equal
// entry instead of duplicating it. Returns the resulting index.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, existing := range m.Types {
		if existing.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}
