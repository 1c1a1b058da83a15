package server

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/sensor-emulator/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/sensor-emulator/internal/pkg/util/fsm"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
)

const (
	StateIdle      = "idle"
	StateListening = "listening"
)

const (
	// EventStart fires after the listener is bound.
	EventStart = "event_start"
	// EventStop fires on an explicit stop.
	EventStop = "event_stop"
	// EventFail fires when the accept loop dies on its own.
	EventFail = "event_fail"
)

// StateMachine tracks whether the server is listening.
// Callbacks only record side effects; they never fire events themselves.
type StateMachine struct {
	*fsm.FSM
}

func NewStateMachine() *StateMachine {
	m := &StateMachine{}

	events := fsm.Events{
		{Name: EventStart, Src: []string{StateIdle}, Dst: StateListening},
		{Name: EventStop, Src: []string{StateListening}, Dst: StateIdle},
		{Name: EventFail, Src: []string{StateListening}, Dst: StateIdle},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateListening: fsmutil.WrapEvent(m.ActionEnterListening),
		"enter_" + StateIdle:      fsmutil.WrapEvent(m.ActionEnterIdle),
	}

	m.FSM = fsm.NewFSM(StateIdle, events, callbacks)
	return m
}

// Fire triggers the event when the current state allows it and reports whether it did.
func (m *StateMachine) Fire(event string, args ...any) bool {
	if !m.Can(event) {
		return false
	}
	if err := m.Event(context.Background(), event, args...); err != nil {
		log.Warn("Server state transition failed", "event", event, "error", err)
		return false
	}
	return true
}

func (m *StateMachine) ActionEnterListening(ctx context.Context, e *fsm.Event) error {
	metrics.ServerListening.Set(1)
	return nil
}

func (m *StateMachine) ActionEnterIdle(ctx context.Context, e *fsm.Event) error {
	metrics.ServerListening.Set(0)
	metrics.ActiveConnections.Set(0)
	if e.Event == EventFail {
		log.Warn("Server left the listening state", "from", e.Src)
	}
	return nil
}
