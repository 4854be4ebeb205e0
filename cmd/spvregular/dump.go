package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spvregular/internal/ir"
	"spvregular/internal/irfile"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <module.mp>",
	Short: "Print a module snapshot as text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uses, err := cmd.Flags().GetBool("uses")
		if err != nil {
			return fmt.Errorf("failed to get uses flag: %w", err)
		}
		m, err := irfile.ReadFile(args[0])
		if err != nil {
			return err
		}
		return ir.Dump(cmd.OutOrStdout(), m, ir.DumpOptions{ShowUses: uses})
	},
}

func init() {
	dumpCmd.Flags().Bool("uses", false, "annotate values with their use counts")
}
