package wasmkit

import (
	"context"

	"github.com/jasonwyatt/wasmkit/linker"
	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat"
)

// Runtime is the embedding façade: it accumulates modules (binary or
// text, parsed and validated as they're added) and host modules, then
// builds a linked, runnable Program.
type Runtime struct {
	cfg     Config
	builder *linker.Builder
}

// New returns a Runtime configured by opts.
func New(opts ...Option) *Runtime {
	cfg := NewConfig(opts...)
	linker.SetLogger(cfg.Logger)
	return &Runtime{cfg: cfg, builder: linker.NewBuilder()}
}

// LoadBinary parses, validates, and registers a binary module under name.
func (rt *Runtime) LoadBinary(name string, data []byte) error {
	m, err := wasm.ParseModule(data)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	return rt.builder.Register(name, m)
}

// LoadModule registers an already-parsed module under name, validating it
// first (every time, even if it was validated before).
func (rt *Runtime) LoadModule(name string, m *wasm.Module) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return rt.builder.Register(name, m)
}

// LoadText parses, validates, and registers a text-format module under
// name. name is also attributed to every lex/parse error's position.
func (rt *Runtime) LoadText(name string, src string) error {
	m, err := wat.CompileNamed(name, src)
	if err != nil {
		return err
	}
	return rt.builder.Register(name, m)
}

// RegisterHostModule adds a bundle of host functions under hm.Name.
func (rt *Runtime) RegisterHostModule(hm *linker.HostModule) error {
	return rt.builder.RegisterHostModule(hm)
}

// Build resolves imports across every registered module and host module,
// instantiates them in dependency order, and returns a ready-to-call
// Program.
func (rt *Runtime) Build(ctx context.Context) (*linker.Program, error) {
	return rt.builder.Build(ctx, rt.cfg.Limits)
}
