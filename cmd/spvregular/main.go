package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"spvregular/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "spvregular",
	Short: "SPIR-V regularizer for LLVM-style IR modules",
	Long: `spvregular rewrites IR module snapshots so that every construct has a direct
SPIR-V equivalent, then verifies the result`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupRun,
	PersistentPostRunE: teardownRun,
}

// cleanups run in reverse order after every command.
var cleanups []func()

// main registers subcommands and persistent flags, then executes the root
// command. A failing command exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to spvregular.toml (default: search upward from the working directory)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to show per file")

	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")

	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a runtime execution trace to file")

	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails
	_ = teardownRun(rootCmd, nil)
	if err != nil {
		os.Exit(1)
	}
}

func setupRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	activeConfig = cfg

	if err := setupColor(cmd); err != nil {
		return err
	}

	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, stopProf)

	stopTrace, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, stopTrace)
	return nil
}

func teardownRun(*cobra.Command, []string) error {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
	return nil
}

// setupColor resolves --color against the terminal and sets color.NoColor.
func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("unsupported color mode %q (must be auto, on or off)", mode)
	}
	return nil
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor() bool {
	return !color.NoColor
}
