package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"spvregular/internal/driver"
	"spvregular/internal/ui"
)

type runOutcome struct {
	results []driver.FileResult
	err     error
}

// runFilesWithUI runs the batch behind a progress view fed by phase events.
func runFilesWithUI(ctx context.Context, title string, files []string, opts driver.Options) ([]driver.FileResult, error) {
	events := make(chan driver.PhaseEvent, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		prev := opts.Observer
		optsCopy.Observer = func(ev driver.PhaseEvent) {
			if prev != nil {
				prev(ev)
			}
			events <- ev
		}
		res, err := driver.RunFiles(ctx, files, optsCopy)
		outcomeCh <- runOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep the workers from blocking on a dead view
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
