package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spvregular/internal/driver"
	"spvregular/internal/regularize"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <module.mp|directory>...",
	Short: "Regularize module snapshots",
	Long: `Load every module, regularize it, verify the result and write it back,
either in place or under --out-dir. Directories expand to the *.mp files they contain.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegularize,
}

func init() {
	runCmd.Flags().StringP("out-dir", "o", "", "write results to this directory instead of in place")
	runCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	runCmd.Flags().Bool("save-regularized", false, "also write a snapshot of every regularized module")
	runCmd.Flags().String("snapshot-path", "", "snapshot path (single input only; default <output>.regularized.mp)")
	runCmd.Flags().String("pass-name", "", "pass name reported by the verifier")
	runCmd.Flags().Bool("disk-cache", false, "reuse results of unchanged inputs from the user cache directory")
	runCmd.Flags().Bool("clear-cache", false, "drop the disk cache before running")
	runCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	runCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	runCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

func runRegularize(cmd *cobra.Command, args []string) error {
	common, err := readCommonFlags(cmd)
	if err != nil {
		return err
	}
	cfg := activeConfig
	flags := cmd.Flags()

	outDir, err := flags.GetString("out-dir")
	if err != nil {
		return fmt.Errorf("failed to get out-dir flag: %w", err)
	}
	if !flags.Changed("out-dir") {
		outDir = cfg.Run.OutDir
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if !flags.Changed("jobs") {
		jobs = cfg.Run.Jobs
	}
	save, err := flags.GetBool("save-regularized")
	if err != nil {
		return fmt.Errorf("failed to get save-regularized flag: %w", err)
	}
	if !flags.Changed("save-regularized") {
		save = cfg.Regularize.SaveRegularized
	}
	snapshot, err := flags.GetString("snapshot-path")
	if err != nil {
		return fmt.Errorf("failed to get snapshot-path flag: %w", err)
	}
	if !flags.Changed("snapshot-path") {
		snapshot = cfg.Regularize.SnapshotPath
	}
	passName, err := flags.GetString("pass-name")
	if err != nil {
		return fmt.Errorf("failed to get pass-name flag: %w", err)
	}
	if !flags.Changed("pass-name") {
		passName = cfg.Regularize.PassName
	}
	useCache, err := flags.GetBool("disk-cache")
	if err != nil {
		return fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	if !flags.Changed("disk-cache") {
		useCache = cfg.Run.Cache
	}
	clearCache, err := flags.GetBool("clear-cache")
	if err != nil {
		return fmt.Errorf("failed to get clear-cache flag: %w", err)
	}
	format, err := readFormat(cmd)
	if err != nil {
		return err
	}
	withNotes, err := flags.GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	paths, err := driver.ExpandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files in %v", driver.ModuleExt, args)
	}
	if snapshot != "" && len(paths) > 1 {
		return fmt.Errorf("--snapshot-path needs a single input, got %d", len(paths))
	}

	opts := driver.Options{
		Jobs:           jobs,
		OutDir:         outDir,
		MaxDiagnostics: common.maxDiagnostics,
		Timings:        common.timings,
		Regularize: regularize.Options{
			SaveRegularized: save,
			SnapshotPath:    snapshot,
			PassName:        passName,
		},
	}
	if useCache || clearCache {
		cache, err := driver.OpenDiskCache("spvregular")
		if err != nil {
			return fmt.Errorf("failed to open disk cache: %w", err)
		}
		if clearCache {
			if err := cache.DropAll(); err != nil {
				return fmt.Errorf("failed to clear disk cache: %w", err)
			}
		}
		if useCache {
			opts.Cache = cache
		}
	}

	var results []driver.FileResult
	if shouldUseTUI(mode, len(paths)) && !common.quiet && format == "pretty" {
		results, err = runFilesWithUI(cmd.Context(), "regularize", paths, opts)
	} else {
		results, err = driver.RunFiles(cmd.Context(), paths, opts)
	}
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
	if !common.quiet {
		for i := range results {
			res := &results[i]
			if res.Output == "" {
				continue
			}
			note := ""
			if res.Cached {
				note = " (cached)"
			}
			fmt.Fprintf(out, "regularized %s -> %s%s\n", res.Path, res.Output, note)
		}
	}
	return errFailedFiles(failed, len(results))
}
