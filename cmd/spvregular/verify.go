package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spvregular/internal/driver"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [flags] <module.mp|directory>...",
	Short: "Check module snapshots without changing them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().Bool("regularized", false, "also require every construct to be SPIR-V representable")
	verifyCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	verifyCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	verifyCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	common, err := readCommonFlags(cmd)
	if err != nil {
		return err
	}
	regularized, err := cmd.Flags().GetBool("regularized")
	if err != nil {
		return fmt.Errorf("failed to get regularized flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if !cmd.Flags().Changed("jobs") {
		jobs = activeConfig.Run.Jobs
	}
	format, err := readFormat(cmd)
	if err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}

	paths, err := driver.ExpandInputs(args)
	if err != nil {
		return err
	}
	results, err := driver.VerifyFiles(cmd.Context(), paths, driver.Options{
		Jobs:           jobs,
		MaxDiagnostics: common.maxDiagnostics,
		Regularized:    regularized,
		Timings:        common.timings,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed, err := emitResults(out, results, format, withNotes, common.maxDiagnostics)
	if err != nil {
		return err
	}
	if format != "pretty" {
		return errFailedFiles(failed, len(results))
	}
	if common.timings {
		printFileTimings(out, results)
	}
	if failed == 0 && !common.quiet {
		fmt.Fprintf(out, "%d files ok\n", len(results))
	}
	return errFailedFiles(failed, len(results))
}
