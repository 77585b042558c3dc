package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <module>",
		Short: "Parse and statically validate a module, printing ok or the first error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := readModFile(args[0])
			if err != nil {
				fmt.Println(color.RedString("invalid: %v", err))
				return err
			}
			fmt.Println(color.GreenString("ok: %s (%d types, %d functions, %d exports)",
				mf.Path, len(mf.Module.Types), mf.Module.NumFuncs(), len(mf.Module.Exports)))
			return nil
		},
	}
}
