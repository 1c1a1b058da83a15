// Package core holds the operations front-ends call on the emulator: server
// lifecycle, sending records, CAN simulation and the state they render.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/server"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/simulator"
	"github.com/autopeer-io/sensor-emulator/internal/pkg/metrics"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// Source tells who asked for a record to be sent.
type Source string

const (
	SourceOperator  Source = "operator"
	SourceSimulator Source = "simulator"
	SourceInject    Source = "inject"
)

// Status is what a front-end needs to render the emulator.
type Status struct {
	Server     server.State   `json:"server"`
	Simulating bool           `json:"simulating"`
	LastRecord *sensor.Record `json:"lastRecord,omitempty"`
}

// Emulator ties the connection manager, the CAN simulator and the event log together.
//
// Observers registered with OnRecordReceived and OnRecordSent run on the
// goroutine that produced the record and must not block.
type Emulator struct {
	server    *server.Server
	simulator *simulator.Simulator
	events    *eventlog.EventLog
	logger    log.Logger

	mu     sync.RWMutex
	last   *sensor.Record
	nextID int
	onRecv map[int]func(sensor.Record)
	onSent map[int]func(Source, sensor.Record)
}

// New wires srv and sim to events. The emulator takes over srv's record handler.
func New(srv *server.Server, sim *simulator.Simulator, events *eventlog.EventLog) *Emulator {
	e := &Emulator{
		server:    srv,
		simulator: sim,
		events:    events,
		logger:    log.WithName("emulator"),
		onRecv:    make(map[int]func(sensor.Record)),
		onSent:    make(map[int]func(Source, sensor.Record)),
	}
	srv.OnRecord(e.recordReceived)
	return e
}

// Events returns the event log front-ends render and subscribe to.
func (e *Emulator) Events() *eventlog.EventLog { return e.events }

// StartServer starts listening. It is a no-op when already listening.
func (e *Emulator) StartServer() error {
	return e.server.Start()
}

// StopServer stops listening and drops the client. It is a no-op when idle.
func (e *Emulator) StopServer() {
	e.server.Stop()
}

// ToggleServer starts an idle server or stops a listening one, like the
// front-end's single start/stop button.
func (e *Emulator) ToggleServer() error {
	if e.server.State().Listening {
		e.server.Stop()
		return nil
	}
	return e.server.Start()
}

// SendSensorData writes r to the attached client.
func (e *Emulator) SendSensorData(r sensor.Record) error {
	return e.Send(SourceOperator, r)
}

// Send writes r to the attached client on behalf of src and notifies OnRecordSent observers on success.
func (e *Emulator) Send(src Source, r sensor.Record) error {
	if err := e.server.Send(r); err != nil {
		metrics.FramesSent.WithLabelValues(string(src), metrics.StatusFailed).Inc()
		e.logger.Error(err, "Error sending message", "source", src)
		return err
	}
	metrics.FramesSent.WithLabelValues(string(src), metrics.StatusSuccess).Inc()

	e.mu.RLock()
	fns := make([]func(Source, sensor.Record), 0, len(e.onSent))
	for _, fn := range e.onSent {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(src, r)
	}
	return nil
}

// StartCANSimulation starts emitting simulated records once per interval.
// It is a no-op while the simulation runs.
func (e *Emulator) StartCANSimulation() error {
	return e.simulator.Start(e.simulated)
}

// StopCANSimulation stops the simulation. It is a no-op while stopped.
func (e *Emulator) StopCANSimulation() {
	e.simulator.Stop()
}

// Simulator exposes the simulator for runtime reconfiguration.
func (e *Emulator) Simulator() *simulator.Simulator { return e.simulator }

// Disconnect stops the simulation and the server and resets the event log to "Server stopped".
func (e *Emulator) Disconnect() {
	e.simulator.Stop()
	e.server.Stop()
	e.events.Reset("Server stopped")
}

// Status returns a snapshot for front-ends.
func (e *Emulator) Status() Status {
	st := Status{
		Server:     e.server.State(),
		Simulating: e.simulator.Running(),
	}
	if r, ok := e.LastRecord(); ok {
		st.LastRecord = &r
	}
	return st
}

// LastRecord returns the most recent record received from the client.
func (e *Emulator) LastRecord() (sensor.Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return sensor.Record{}, false
	}
	return *e.last, true
}

// FormRecord is the record a configuration form starts from: the last received
// record, or sensor.DefaultRecord before anything was received.
func (e *Emulator) FormRecord() sensor.Record {
	if r, ok := e.LastRecord(); ok {
		return r
	}
	return sensor.DefaultRecord()
}

// OnRecordReceived registers fn for every record the client sends.
func (e *Emulator) OnRecordReceived(fn func(sensor.Record)) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.onRecv[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.onRecv, id)
		e.mu.Unlock()
	}
}

// OnRecordSent registers fn for every record successfully written to the client.
func (e *Emulator) OnRecordSent(fn func(Source, sensor.Record)) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.onSent[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.onSent, id)
		e.mu.Unlock()
	}
}

func (e *Emulator) recordReceived(r sensor.Record) {
	e.mu.Lock()
	e.last = &r
	fns := make([]func(sensor.Record), 0, len(e.onRecv))
	for _, fn := range e.onRecv {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	e.events.Append(ReceivedLine(r))
	for _, fn := range fns {
		fn(r)
	}
}

// simulated forwards one simulated record and logs it exactly once, whether or not a client is attached.
func (e *Emulator) simulated(r sensor.Record) {
	// Send logs and counts its own failures; the simulation keeps going.
	_ = e.Send(SourceSimulator, r)
	e.events.Append(SimulatedLine(r))
}

// ReceivedLine is the event log line for a record read from the client.
func ReceivedLine(r sensor.Record) string {
	return fmt.Sprintf("Received msg from Client: Pressure --->%s, TPMS ----> %s, Lights--->%t, Fuel ---> %d",
		FormatFloat(r.Pressure), FormatFloat(r.TPMS), r.LightsOn, r.FuelLevel)
}

// SimulatedLine is the event log line for a simulated record.
func SimulatedLine(r sensor.Record) string {
	return fmt.Sprintf("CAN sensorData tpms---> %s,pressure---> %s,temperature--> %s",
		FormatFloat(r.TPMS), FormatFloat(r.Pressure), FormatFloat(r.Temperature))
}

// FormatFloat prints f with the shortest exact representation, keeping a
// trailing ".0" on whole numbers (50 -> "50.0").
func FormatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
