// Package eventlog keeps the ordered, human-readable status lines shown by the
// emulator front-ends.
package eventlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/autopeer-io/sensor-emulator/pkg/log"
)

// InitialLine is the content of a fresh log.
const InitialLine = "Server not started"

// EventType distinguishes appended lines from a reset of the log.
type EventType string

const (
	Appended EventType = "appended"
	Cleared  EventType = "cleared"
)

// Event is delivered to subscribers after the log changed.
type Event struct {
	Type EventType `json:"type"`
	Line string    `json:"line,omitempty"`
	Time time.Time `json:"time"`
}

// EventLog is an append-only list of lines, cleared explicitly on stop or disconnect.
// The zero value is not usable; use New.
type EventLog struct {
	mu     sync.RWMutex
	lines  []string
	logger log.Logger

	subMu  sync.RWMutex
	nextID int
	subs   map[int]func(Event)

	now func() time.Time
}

// New returns a log holding InitialLine. Every appended line is mirrored to logger at Info level.
func New(logger log.Logger) *EventLog {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &EventLog{
		lines:  []string{InitialLine},
		logger: logger,
		subs:   make(map[int]func(Event)),
		now:    time.Now,
	}
}

// Append adds a line at the end of the log.
func (l *EventLog) Append(line string) {
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()

	l.logger.Info(line)
	l.notify(Event{Type: Appended, Line: line, Time: l.now()})
}

// Appendf formats according to a format specifier and appends the result.
func (l *EventLog) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// Clear empties the log.
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.lines = nil
	l.mu.Unlock()

	l.notify(Event{Type: Cleared, Time: l.now()})
}

// Reset replaces the whole content with a single line.
func (l *EventLog) Reset(line string) {
	l.Clear()
	l.Append(line)
}

// Snapshot returns a copy of the current lines in display order.
func (l *EventLog) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of lines.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lines)
}

// Last returns the most recent line, or "" when the log is empty.
func (l *EventLog) Last() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.lines) == 0 {
		return ""
	}
	return l.lines[len(l.lines)-1]
}

// Subscribe registers fn for every subsequent change and returns a function that removes it.
// fn is called on the goroutine that changed the log, outside any lock of the log.
func (l *EventLog) Subscribe(fn func(Event)) (cancel func()) {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
		})
	}
}

func (l *EventLog) notify(ev Event) {
	l.subMu.RLock()
	fns := make([]func(Event), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
