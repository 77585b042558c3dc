// Package wat parses the WebAssembly text format directly into a
// *wasm.Module, the same abstract representation the binary parser
// produces, so the validator, encoder, and interpreter are agnostic to
// which front end a module came from.
package wat

import (
	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat/internal/parser"
	"github.com/jasonwyatt/wasmkit/wat/internal/token"
)

// ParseNamed tokenizes and parses a single "(module ...)" text-format
// source attributed to file, returning an unvalidated *wasm.Module. file
// is carried through to every lex and parse error's position.
func ParseNamed(file, src string) (*wasm.Module, error) {
	tokens, err := token.Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	p := parser.New(tokens)
	m, err := p.Parse()
	if err != nil {
		perr := werrors.Wrap(werrors.PhaseParse, werrors.KindParseError, err, "parsing text format")
		if file != "" {
			return nil, perr.WithPath(file)
		}
		return nil, perr
	}
	return m, nil
}

// Parse is ParseNamed with no file attribution, for callers that don't
// have (or don't care about) a source name.
func Parse(src string) (*wasm.Module, error) {
	return ParseNamed("", src)
}

// CompileNamed parses src (attributed to file) and validates the
// resulting module, matching the pipeline ParseModule+Validate runs for
// binary input.
func CompileNamed(file, src string) (*wasm.Module, error) {
	m, err := ParseNamed(file, src)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Compile is CompileNamed with no file attribution.
func Compile(src string) (*wasm.Module, error) {
	return CompileNamed("", src)
}
