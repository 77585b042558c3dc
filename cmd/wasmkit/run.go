package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jasonwyatt/wasmkit"
	"github.com/jasonwyatt/wasmkit/runtime"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <module> <func> [args...]",
		Short: "Instantiate a module and call one of its exported functions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := readModFile(args[0])
			if err != nil {
				return err
			}
			funcName := args[1]
			rawArgs := args[2:]

			rt := wasmkit.New()
			if err := rt.LoadModule("main", mf.Module); err != nil {
				return err
			}
			ctx := context.Background()
			prog, err := rt.Build(ctx)
			if err != nil {
				return err
			}

			vals, err := parseArgValues(rawArgs)
			if err != nil {
				return err
			}

			results, err := prog.Call(ctx, "main", funcName, vals)
			if err != nil {
				fmt.Println(color.RedString("trap: %v", err))
				return err
			}
			for i, r := range results {
				fmt.Printf("result[%d] = %d (0x%x)\n", i, uint64(r), uint64(r))
			}
			return nil
		},
	}
}

// parseArgValues interprets each CLI argument as a decimal (or 0x-prefixed
// hex) integer and lays it down as an i64 Value; WebAssembly 1.0 has no
// way to know a function's parameter types from the command line alone,
// so callers passing f32/f64 arguments should use `wasmkit inspect` first
// and pass the raw bit pattern.
func parseArgValues(raw []string) ([]runtime.Value, error) {
	vals := make([]runtime.Value, len(raw))
	for i, a := range raw {
		base := 10
		s := a
		if strings.HasPrefix(a, "0x") || strings.HasPrefix(a, "-0x") {
			base = 16
			s = strings.Replace(a, "0x", "", 1)
		}
		n, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a, err)
		}
		vals[i] = runtime.ValueI64(n)
	}
	return vals, nil
}
