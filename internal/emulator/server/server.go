// Package server accepts a single sensor stream client over TCP and exchanges
// length-delimited SensorData frames with it.
package server

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/internal/pkg/metrics"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// RecordHandler is called synchronously, in frame order, for every record the client sends.
type RecordHandler func(sensor.Record)

// State is a point-in-time view of the server.
type State struct {
	Listening bool      `json:"listening"`
	Addr      string    `json:"addr,omitempty"`
	Active    *ConnInfo `json:"active,omitempty"`
}

// Server is the connection manager: one listener, at most one active client.
//
// Event log subscribers and record handlers run on server goroutines and must
// not call Start or Stop synchronously.
type Server struct {
	opts   *options.TCPOptions
	events *eventlog.EventLog
	logger log.Logger

	// opMu serializes Start and Stop.
	opMu sync.Mutex

	mu       sync.Mutex
	fsm      *StateMachine
	listener net.Listener
	active   *Conn
	onRecord RecordHandler

	wg sync.WaitGroup
}

// New creates an idle server. A nil opts means the defaults of options.NewTCPOptions.
func New(opts *options.TCPOptions, events *eventlog.EventLog) *Server {
	if opts == nil {
		opts = options.NewTCPOptions()
	}
	if events == nil {
		events = eventlog.New(nil)
	}
	return &Server{
		opts:   opts,
		events: events,
		logger: log.WithName("server"),
		fsm:    NewStateMachine(),
	}
}

// OnRecord sets the handler for received records.
func (s *Server) OnRecord(h RecordHandler) {
	s.mu.Lock()
	s.onRecord = h
	s.mu.Unlock()
}

// Start binds the listener and runs the accept loop. Calling it while listening is a no-op.
func (s *Server) Start() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State().Listening {
		return nil
	}

	s.events.Append("Starting server...")

	ln, err := net.Listen(s.opts.Network, s.opts.Addr)
	if err != nil {
		s.events.Appendf("Error: %v", err)
		return &BindError{Addr: s.opts.Addr, Err: err}
	}

	s.mu.Lock()
	s.listener = ln
	s.fsm.Fire(EventStart)
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("Listener bound", "addr", ln.Addr())
	s.events.Appendf("Server started on port %d. Waiting for a client...", port(ln.Addr()))

	go s.acceptLoop(ln)
	return nil
}

// Stop closes the listener and the active client, waits for the server
// goroutines and resets the event log to "Server stopped". It is a no-op when idle.
func (s *Server) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if !s.fsm.Is(StateListening) {
		s.mu.Unlock()
		return
	}
	ln, active := s.listener, s.active
	s.listener, s.active = nil, nil
	s.fsm.Fire(EventStop)
	s.mu.Unlock()

	_ = ln.Close()
	if active != nil {
		_ = active.Close()
	}
	s.wg.Wait()

	s.events.Reset("Server stopped")
}

// Send encodes r and writes it to the active client.
func (s *Server) Send(r sensor.Record) error {
	s.mu.Lock()
	c := s.active
	s.mu.Unlock()

	if c == nil {
		return ErrNoActiveConnection
	}
	return c.Send(r, s.opts.WriteTimeout)
}

// State returns the current listening state and the active client, if any.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{Listening: s.fsm.Is(StateListening)}
	if s.listener != nil {
		st.Addr = s.listener.Addr().String()
	}
	if s.active != nil {
		info := s.active.Info()
		st.Active = &info
	}
	return st
}

// Addr returns the bound address, or nil when idle.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		nc, err := ln.Accept()
		if err != nil {
			s.acceptFailed(ln, err)
			return
		}

		c := newConn(nc)

		s.mu.Lock()
		if s.listener != ln {
			s.mu.Unlock()
			_ = nc.Close()
			return
		}
		prev := s.active
		s.active = c
		s.wg.Add(1)
		s.mu.Unlock()

		// The newest client wins.
		if prev != nil {
			s.logger.Info("Replacing active client", "previous", prev.Info().RemoteAddr, "next", c.Info().RemoteAddr)
			_ = prev.Close()
		}
		metrics.ConnectionsAccepted.Inc()
		metrics.ActiveConnections.Set(1)

		s.events.Appendf("Client is connected: %s. Listening for messages...", c.Info().Host)
		go s.receiveLoop(c)
	}
}

// acceptFailed handles the end of the accept loop. Errors caused by Stop are silent.
func (s *Server) acceptFailed(ln net.Listener, err error) {
	s.mu.Lock()
	if s.listener != ln {
		s.mu.Unlock()
		return
	}
	active := s.active
	s.listener, s.active = nil, nil
	s.fsm.Fire(EventFail)
	s.mu.Unlock()

	_ = ln.Close()
	if active != nil {
		_ = active.Close()
	}
	s.logger.Error(err, "Accept loop stopped")
	s.events.Appendf("Error: %v", err)
}

func (s *Server) receiveLoop(c *Conn) {
	defer s.wg.Done()

	dec := sensor.NewDecoder(deadlineReader{nc: c.nc, timeout: s.opts.ReadTimeout})
	for {
		r, err := dec.Decode()
		if err != nil {
			s.endConn(c, err)
			return
		}

		metrics.FramesReceived.Inc()

		s.mu.Lock()
		h := s.onRecord
		s.mu.Unlock()
		if h != nil {
			h(r)
		}
	}
}

func (s *Server) endConn(c *Conn, err error) {
	if !c.release() {
		// Closed by Stop or by a newer client.
		return
	}

	s.mu.Lock()
	if s.active == c {
		s.active = nil
		metrics.ActiveConnections.Set(0)
	}
	s.mu.Unlock()

	if errors.Is(err, io.EOF) {
		s.events.Appendf("Client disconnected: %s", c.Info().Host)
		return
	}

	var decErr *sensor.DecodeError
	if errors.As(err, &decErr) {
		metrics.DecodeErrors.Inc()
	}
	s.logger.Error(err, "Client communication failed", "remote", c.Info().RemoteAddr)
	s.events.Appendf("Error during client communication: %v", err)
}

func port(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
