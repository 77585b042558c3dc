// Command wasmkit is a small inspector/runner that exercises the engine
// from the command line: parsing and validating modules, running an
// exported function, printing a module's import/export surface, and a
// REPL for calling exported functions interactively.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "wasmkit",
		Short: "Parse, validate, run, and inspect WebAssembly 1.0 modules",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newReplCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func loadModule(path string) (*modFile, error) {
	return readModFile(path)
}
