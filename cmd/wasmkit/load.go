package main

import (
	"os"
	"strings"

	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat"
)

// modFile is a parsed-and-validated module plus the path it came from,
// used by every subcommand so the binary/text dispatch lives in one place.
type modFile struct {
	Path   string
	Module *wasm.Module
}

// readModFile loads path, parsing it as text format if it ends in .wat
// or .wast and as binary otherwise, then validates the result.
func readModFile(path string) (*modFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m *wasm.Module
	if strings.HasSuffix(path, ".wat") || strings.HasSuffix(path, ".wast") {
		m, err = wat.CompileNamed(path, string(data))
		if err != nil {
			return nil, err
		}
		return &modFile{Path: path, Module: m}, nil
	}

	m, err = wasm.ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &modFile{Path: path, Module: m}, nil
}
