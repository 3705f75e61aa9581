package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tarn/internal/driver"
	"tarn/internal/ui"
)

type vetOutcome struct {
	result *driver.Result
	err    error
}

// runVetWithUI runs the driver under a Bubble Tea progress program. События
// идут через буферизованный канал с drop-on-full: интерфейс не имеет права
// тормозить проверку.
func runVetWithUI(ctx context.Context, title string, files []string, opts driver.Options) (*driver.Result, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan vetOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = ui.ChannelSink{Ch: events}
		res, err := driver.Vet(ctx, files, optsCopy)
		outcomeCh <- vetOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
