package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spvregular/internal/interp"
	"spvregular/internal/irfile"
	"spvregular/internal/trace"
	"spvregular/internal/types"
)

var evalCmd = &cobra.Command{
	Use:   "eval [flags] <module.mp> <function> [args...]",
	Short: "Run a function of a module in the reference interpreter",
	Long: `Run a function in the reference interpreter. Arguments are parsed against the
parameter types: integers accept 0x/0o/0b prefixes, vectors are written <a,b,...>.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().Int("max-steps", 0, "instruction budget (0=default)")
}

func runEval(cmd *cobra.Command, args []string) error {
	maxSteps, err := cmd.Flags().GetInt("max-steps")
	if err != nil {
		return fmt.Errorf("failed to get max-steps flag: %w", err)
	}
	m, err := irfile.ReadFile(args[0])
	if err != nil {
		return err
	}
	f := m.Func(args[1])
	if f == nil {
		return fmt.Errorf("%s: no function @%s", args[0], args[1])
	}
	params := f.ParamTypes()
	if len(args)-2 != len(params) {
		return fmt.Errorf("@%s takes %d arguments, got %d", f.Name, len(params), len(args)-2)
	}
	vals := make([]interp.Value, len(params))
	for i, p := range params {
		if vals[i], err = interp.ParseArg(m.Types, p, args[i+2]); err != nil {
			return err
		}
	}

	vm := interp.New(m, interp.Options{MaxSteps: maxSteps, Tracer: trace.FromContext(cmd.Context())})
	got, err := vm.CallFunc(f, vals)
	if err != nil {
		var ierr *interp.Error
		if errors.As(err, &ierr) {
			fmt.Fprint(cmd.ErrOrStderr(), ierr.FormatBacktrace())
		}
		return err
	}
	out := cmd.OutOrStdout()
	if m.Types.KindOf(f.Result()) != types.KindVoid {
		fmt.Fprintln(out, interp.Format(m.Types, got))
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d steps\n", vm.Steps())
	}
	return nil
}
