// Package console is the interactive terminal front-end of the emulator.
package console

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
)

// Console runs the terminal UI until the operator quits or ctx is done.
type Console struct {
	ctrl Controller
	opts []tea.ProgramOption
}

func New(ctrl Controller, opts ...tea.ProgramOption) *Console {
	return &Console{ctrl: ctrl, opts: opts}
}

// Start blocks while the UI runs. It returns nil when the operator quits.
func (c *Console) Start(ctx context.Context) error {
	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, c.opts...)
	p := tea.NewProgram(NewModel(c.ctrl), opts...)

	// Changes are coalesced and handed over by a pump goroutine: Update may be
	// blocked in Stop waiting for the very goroutine that appended the line.
	changed := make(chan struct{}, 1)
	cancel := c.ctrl.Events().Subscribe(func(eventlog.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-changed:
				p.Send(logChangedMsg{})
			}
		}
	}()

	log.Info("Console started")
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
