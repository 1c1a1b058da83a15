// Package api serves the emulator's HTTP control API, its event stream and
// the Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/core"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/internal/pkg/metrics"
	middleware "github.com/autopeer-io/sensor-emulator/internal/pkg/middleware/http"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// Controller is the part of the emulator the API drives. *core.Emulator implements it.
type Controller interface {
	StartServer() error
	StopServer()
	ToggleServer() error
	SendSensorData(r sensor.Record) error
	StartCANSimulation() error
	StopCANSimulation()
	Disconnect()
	Status() core.Status
	LastRecord() (sensor.Record, bool)
	FormRecord() sensor.Record
	Events() *eventlog.EventLog
}

var _ Controller = (*core.Emulator)(nil)

type Server struct {
	server   *http.Server
	options  *options.HttpOptions
	ctrl     Controller
	upgrader websocket.Upgrader

	// closing is closed on shutdown so event streams hang up.
	closing chan struct{}
}

func NewServer(opts *options.HttpOptions, ctrl Controller) *Server {
	s := &Server{
		options: opts,
		ctrl:    ctrl,
		closing: make(chan struct{}),
		upgrader: websocket.Upgrader{
			// The API has no authentication; any origin may watch the log.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: opts.Timeout,
	}
	s.server.RegisterOnShutdown(func() { close(s.closing) })
	return s
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Logging, middleware.Timeout(s.options.Timeout))

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	v1.HandleFunc("/server/{action:start|stop|toggle}", s.serverAction).Methods(http.MethodPost)
	v1.HandleFunc("/disconnect", s.disconnect).Methods(http.MethodPost)
	v1.HandleFunc("/records", s.sendRecord).Methods(http.MethodPost)
	v1.HandleFunc("/records/last", s.lastRecord).Methods(http.MethodGet)
	v1.HandleFunc("/records/form", s.formRecord).Methods(http.MethodGet)
	v1.HandleFunc("/simulator/{action:start|stop}", s.simulatorAction).Methods(http.MethodPost)
	v1.HandleFunc("/events", s.listEvents).Methods(http.MethodGet)
	v1.HandleFunc("/events/ws", s.streamEvents).Methods(http.MethodGet)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	ln, err := net.Listen(s.options.Network, s.server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout := s.options.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
