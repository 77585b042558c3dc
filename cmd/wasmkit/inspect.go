package main

import (
	"fmt"
	"strings"

	"github.com/jasonwyatt/wasmkit/api"
	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <module>",
		Short: "Print a module's imports and exports, with function signatures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := readModFile(args[0])
			if err != nil {
				return err
			}
			m := mf.Module

			fmt.Printf("module: %s\n\n", mf.Path)

			fmt.Println("imports:")
			for _, imp := range m.Imports {
				fmt.Printf("  %s.%s: %s\n", imp.Module, imp.Name, describeImportDesc(m, imp.Desc))
			}

			fmt.Println("\nexports:")
			for _, exp := range m.Exports {
				fmt.Printf("  %s (%s): %s\n", exp.Name, api.ExternTypeName(exp.Kind), describeExport(m, exp))
			}
			return nil
		},
	}
}

func describeImportDesc(m *wasm.Module, d wasm.ImportDesc) string {
	switch d.Kind {
	case wasm.KindFunc:
		return "func " + funcTypeString(m.Types[d.TypeIdx])
	case wasm.KindTable:
		return fmt.Sprintf("table min=%d%s", d.Table.Limits.Min, maxStr(d.Table.Limits.Max))
	case wasm.KindMemory:
		return fmt.Sprintf("memory min=%d%s", d.Memory.Limits.Min, maxStr(d.Memory.Limits.Max))
	case wasm.KindGlobal:
		return fmt.Sprintf("global %s%s", api.ValueTypeName(d.Global.Val), mutStr(d.Global.Mutable))
	default:
		return "unknown"
	}
}

func describeExport(m *wasm.Module, e wasm.Export) string {
	switch e.Kind {
	case wasm.KindFunc:
		ft, ok := m.GetFuncType(e.Idx)
		if !ok {
			return "func <invalid index>"
		}
		return funcTypeString(ft)
	case wasm.KindTable:
		return "table"
	case wasm.KindMemory:
		return "memory"
	case wasm.KindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

func funcTypeString(ft wasm.FuncType) string {
	params := make([]string, len(ft.Params))
	for i, p := range ft.Params {
		params[i] = api.ValueTypeName(p)
	}
	results := make([]string, len(ft.Results))
	for i, r := range ft.Results {
		results[i] = api.ValueTypeName(r)
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if len(results) > 0 {
		out += " -> (" + strings.Join(results, ", ") + ")"
	}
	return out
}

func maxStr(max *uint32) string {
	if max == nil {
		return ""
	}
	return fmt.Sprintf(" max=%d", *max)
}

func mutStr(mutable bool) string {
	if mutable {
		return " mut"
	}
	return ""
}
