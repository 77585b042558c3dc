// Package linker resolves a set of registered WebAssembly modules and host
// modules against each other's imports/exports and instantiates them in
// dependency order, producing a ready-to-call Program.
package linker

import (
	"context"

	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/runtime"
	"github.com/jasonwyatt/wasmkit/wasm"
)

// HostFunc is a single host-implemented import, identified by its module
// and field name.
type HostFunc struct {
	Type wasm.FuncType
	Func runtime.HostFunc
}

// HostModule is a named bundle of host functions, registered under a
// module name that Wasm modules can import from (e.g. "env", "wasi_snapshot_preview1").
type HostModule struct {
	Name  string
	Funcs map[string]HostFunc
}

// Builder accumulates module and host-module registrations before
// resolving and instantiating them together.
type Builder struct {
	wasmModules map[string]*wasm.Module
	hostModules map[string]*HostModule
	order       []string // registration order, used to break ties deterministically
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		wasmModules: make(map[string]*wasm.Module),
		hostModules: make(map[string]*HostModule),
	}
}

// Register adds a parsed-and-validated Wasm module under name. name is
// what other modules use as the `module` half of an import.
func (b *Builder) Register(name string, m *wasm.Module) error {
	if _, exists := b.wasmModules[name]; exists {
		return werrors.New(werrors.PhaseLink, werrors.KindIllegalArgument, "module %q already registered", name)
	}
	if _, exists := b.hostModules[name]; exists {
		return werrors.New(werrors.PhaseLink, werrors.KindIllegalArgument, "name %q already registered as a host module", name)
	}
	b.wasmModules[name] = m
	b.order = append(b.order, name)
	return nil
}

// RegisterHostModule adds a bundle of host functions under name.
func (b *Builder) RegisterHostModule(hm *HostModule) error {
	if _, exists := b.hostModules[hm.Name]; exists {
		return werrors.New(werrors.PhaseLink, werrors.KindIllegalArgument, "host module %q already registered", hm.Name)
	}
	if _, exists := b.wasmModules[hm.Name]; exists {
		return werrors.New(werrors.PhaseLink, werrors.KindIllegalArgument, "name %q already registered as a module", hm.Name)
	}
	b.hostModules[hm.Name] = hm
	b.order = append(b.order, hm.Name)
	return nil
}

// Program is the result of a successful Build: every registered module,
// instantiated and linked, sharing one Store and Interpreter.
type Program struct {
	Store       *runtime.Store
	Interpreter *runtime.Interpreter
	instances   map[string]*runtime.ModuleInstance
}

// Instance returns the instantiated module registered under name, if any.
func (p *Program) Instance(name string) (*runtime.ModuleInstance, bool) {
	inst, ok := p.instances[name]
	return inst, ok
}

// Export resolves a (module, name) pair to its store address and kind.
func (p *Program) Export(module, name string) (runtime.ExportInstance, error) {
	inst, ok := p.instances[module]
	if !ok {
		return runtime.ExportInstance{}, werrors.New(werrors.PhaseLink, werrors.KindImportNotFound, "no such module %q", module)
	}
	exp, ok := inst.Exports[name]
	if !ok {
		return runtime.ExportInstance{}, werrors.New(werrors.PhaseLink, werrors.KindExportNotFound, "module %q has no export %q", module, name)
	}
	return exp, nil
}

// Call invokes the exported function (module, name) with args.
func (p *Program) Call(ctx context.Context, module, name string, args []runtime.Value) ([]runtime.Value, error) {
	exp, err := p.Export(module, name)
	if err != nil {
		return nil, err
	}
	if exp.Kind != wasm.KindFunc {
		return nil, werrors.New(werrors.PhaseLink, werrors.KindWrongExportKind, "export %q.%q is not a function", module, name)
	}
	return p.Interpreter.Call(ctx, exp.Addr, args)
}

// Build resolves every registration's imports, orders the wasm modules so
// that each is instantiated only after everything it imports from, and
// instantiates them in that order against a single shared Store. A host
// module is always considered already "instantiated" and contributes no
// ordering edge of its own.
func (b *Builder) Build(ctx context.Context, limits runtime.Limits) (*Program, error) {
	order, err := b.topoSort()
	if err != nil {
		return nil, err
	}

	store := runtime.NewStore()
	interp := runtime.NewInterpreter(store, limits, Logger())
	prog := &Program{Store: store, Interpreter: interp, instances: make(map[string]*runtime.ModuleInstance)}

	hostFuncAddrs := make(map[string]map[string]uint32)
	for hmName, hm := range b.hostModules {
		addrs := make(map[string]uint32, len(hm.Funcs))
		for fname, hf := range hm.Funcs {
			addr := store.AllocFunc(runtime.FunctionInstance{Type: hf.Type, Host: hf.Func})
			addrs[fname] = addr
		}
		hostFuncAddrs[hmName] = addrs
		// Host modules also need an export-only pseudo-instance so
		// Program.Export can serve "host module, func" lookups the same
		// way it serves wasm-module lookups.
		exports := make(map[string]runtime.ExportInstance, len(addrs))
		for fname, addr := range addrs {
			exports[fname] = runtime.ExportInstance{Kind: wasm.KindFunc, Addr: addr}
		}
		prog.instances[hmName] = &runtime.ModuleInstance{Exports: exports}
	}

	for _, name := range order {
		m, ok := b.wasmModules[name]
		if !ok {
			continue // already handled as a host module above
		}
		resolved := make([]runtime.ResolvedImport, len(m.Imports))
		for i, imp := range m.Imports {
			if hm, ok := b.hostModules[imp.Module]; ok {
				if _, ok := hm.Funcs[imp.Name]; !ok {
					return nil, werrors.New(werrors.PhaseLink, werrors.KindImportNotFound, "%s: import %s.%s not found in host module", name, imp.Module, imp.Name).WithPath(name)
				}
				resolved[i] = runtime.ResolvedImport{Kind: wasm.KindFunc, Addr: hostFuncAddrs[imp.Module][imp.Name]}
				continue
			}
			srcInst, ok := prog.instances[imp.Module]
			if !ok {
				return nil, werrors.New(werrors.PhaseLink, werrors.KindImportNotFound, "%s: unresolved import module %q", name, imp.Module).WithPath(name)
			}
			exp, ok := srcInst.Exports[imp.Name]
			if !ok {
				return nil, werrors.New(werrors.PhaseLink, werrors.KindImportNotFound, "%s: import %s.%s not exported", name, imp.Module, imp.Name).WithPath(name)
			}
			if exp.Kind != imp.Desc.Kind {
				return nil, werrors.New(werrors.PhaseLink, werrors.KindWrongExportKind, "%s: import %s.%s kind mismatch", name, imp.Module, imp.Name).WithPath(name)
			}
			if err := checkImportShape(store, m, imp, exp); err != nil {
				return nil, err.WithPath(name)
			}
			resolved[i] = runtime.ResolvedImport{Kind: exp.Kind, Addr: exp.Addr}
		}

		inst, err := runtime.Instantiate(ctx, store, interp, m, resolved)
		if err != nil {
			return nil, err
		}
		prog.instances[name] = inst
	}

	return prog, nil
}

// checkImportShape verifies an already-kind-matched import against the
// concrete instance it resolved to, per spec.md §6's import-matching rule:
// function types must match exactly, table/memory limits must be at least
// as permissive as required, globals must match type and mutability.
func checkImportShape(store *runtime.Store, importer *wasm.Module, imp wasm.Import, exp runtime.ExportInstance) *werrors.Error {
	switch imp.Desc.Kind {
	case wasm.KindFunc:
		fn := store.Func(exp.Addr)
		want := importer.Types[imp.Desc.TypeIdx]
		if !fn.Type.Equal(want) {
			return werrors.New(werrors.PhaseLink, werrors.KindImportMismatch, "function import %s.%s: type mismatch", imp.Module, imp.Name)
		}
	case wasm.KindTable:
		t := store.Table(exp.Addr)
		want := imp.Desc.Table
		if uint32(len(t.Elems)) < want.Min {
			return werrors.New(werrors.PhaseLink, werrors.KindImportMismatch, "table import: provided min %d smaller than required %d", len(t.Elems), want.Min)
		}
	case wasm.KindMemory:
		mem := store.Memory(exp.Addr)
		want := imp.Desc.Memory
		if mem.Pages() < want.Min {
			return werrors.New(werrors.PhaseLink, werrors.KindImportMismatch, "memory import: provided min %d pages smaller than required %d", mem.Pages(), want.Min)
		}
	case wasm.KindGlobal:
		g := store.Global(exp.Addr)
		want := imp.Desc.Global
		if g.Type.Val != want.Val || g.Type.Mutable != want.Mutable {
			return werrors.New(werrors.PhaseLink, werrors.KindImportMismatch, "global import: type or mutability mismatch")
		}
	}
	return nil
}

// topoSort orders every registered name (wasm and host) so that a wasm
// module appears after every module/host-module it imports from. Host
// modules have no dependencies of their own. Returns KindCyclicImports if
// no such order exists.
func (b *Builder) topoSort() ([]string, error) {
	visited := make(map[string]int) // 0=unvisited 1=visiting 2=done
	var out []string

	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return werrors.New(werrors.PhaseLink, werrors.KindCyclicImports, "import cycle detected at module %q", name)
		}
		visited[name] = 1
		if m, ok := b.wasmModules[name]; ok {
			for _, imp := range m.Imports {
				if imp.Module == name {
					continue
				}
				if _, isWasm := b.wasmModules[imp.Module]; isWasm {
					if err := visit(imp.Module); err != nil {
						return err
					}
				}
				// Host module imports contribute no ordering edge: they
				// are considered pre-instantiated.
			}
		}
		visited[name] = 2
		out = append(out, name)
		return nil
	}

	for _, name := range b.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}
