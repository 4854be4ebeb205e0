package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spvregular/internal/trace"
)

// traceFlag returns the persistent string flag name, falling back to the
// config value when the flag was not set explicitly.
func traceFlag(cmd *cobra.Command, name, fromConfig string) (string, error) {
	flags := cmd.Root().PersistentFlags()
	value, err := flags.GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	if !flags.Changed(name) && fromConfig != "" {
		return fromConfig, nil
	}
	return value, nil
}

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command, cfg traceConfig) (func(), error) {
	traceOutput, err := traceFlag(cmd, "trace", cfg.Output)
	if err != nil {
		return nil, err
	}
	levelStr, err := traceFlag(cmd, "trace-level", cfg.Level)
	if err != nil {
		return nil, err
	}
	modeStr, err := traceFlag(cmd, "trace-mode", cfg.Mode)
	if err != nil {
		return nil, err
	}
	ringSize, err := cmd.Root().PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}

	// An output without a level traces phases.
	if level == trace.LevelOff {
		if traceOutput == "" {
			cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
			return func() {}, nil
		}
		level = trace.LevelPhase
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		if ring, ok := ringOf(tracer); ok && mode == trace.ModeRing {
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

func ringOf(t trace.Tracer) (*trace.RingTracer, bool) {
	ring, ok := t.(*trace.RingTracer)
	return ring, ok
}
