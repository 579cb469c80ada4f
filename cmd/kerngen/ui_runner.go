package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"kerngen/internal/buildpipeline"
	"kerngen/internal/driver"
	"kerngen/internal/ui"
)

type batchOutcome struct {
	items []driver.BatchItem
	err   error
}

// runBatchWithUI runs GenerateAll while a progress view renders its events.
// Rows are keyed by display names; display maps config paths to them.
func runBatchWithUI(ctx context.Context, title string, rows []string, display map[string]string, runs []driver.GenerateOptions, jobs int, extra buildpipeline.ProgressSink) ([]driver.BatchItem, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	sink := buildpipeline.FuncSink(func(ev buildpipeline.Event) {
		buildpipeline.Emit(extra, ev)
		if name, ok := display[ev.File]; ok {
			ev.File = name
		}
		events <- ev
	})

	go func() {
		items, err := driver.GenerateAll(ctx, runs, jobs, sink)
		outcomeCh <- batchOutcome{items: items, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, rows, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// если UI завершился раньше, события нужно дочитать
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.items, uiErr
	}
	return outcome.items, outcome.err
}
