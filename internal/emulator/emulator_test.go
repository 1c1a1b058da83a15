package emulator

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/autopeer-io/sensor-emulator/pkg/options"
)

func newTestConfig() *Config {
	tcp := options.NewTCPOptions()
	tcp.Addr = "127.0.0.1:0"

	httpOpts := options.NewHttpOptions()
	httpOpts.Addr = ""

	return &Config{
		TCPOptions:       tcp,
		HttpOptions:      httpOpts,
		MqttOptions:      options.NewMqttOptions(),
		SimulatorOptions: options.NewSimulatorOptions(),
	}
}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Start(ctx context.Context) error { return f(ctx) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func runAsync(s *EmulatorServer, ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	return errCh
}

func TestNewEmulatorServerWiring(t *testing.T) {
	cfg := newTestConfig()
	s, err := cfg.NewEmulatorServer()
	if err != nil {
		t.Fatal(err)
	}
	if len(s.runners) != 0 || s.console != nil {
		t.Errorf("headless config wired %d runners, console %t", len(s.runners), s.console != nil)
	}

	cfg.HttpOptions.Addr = "127.0.0.1:0"
	cfg.MqttOptions.Broker = "tcp://127.0.0.1:1883"
	cfg.Console = true
	s, err = cfg.NewEmulatorServer()
	if err != nil {
		t.Fatal(err)
	}
	if len(s.runners) != 2 || s.console == nil {
		t.Errorf("full config wired %d runners, console %t", len(s.runners), s.console != nil)
	}
}

func TestRunHeadless(t *testing.T) {
	s, err := newTestConfig().NewEmulatorServer()
	if err != nil {
		t.Fatal(err)
	}
	emu := s.Emulator()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(s, ctx)

	waitFor(t, "server to listen", func() bool { return emu.Status().Server.Listening })

	conn, err := net.Dial("tcp", emu.Status().Server.Addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitFor(t, "client to be accepted", func() bool { return emu.Status().Server.Active != nil })

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	st := emu.Status()
	if st.Server.Listening || st.Server.Active != nil {
		t.Errorf("emulator not disconnected: %+v", st.Server)
	}
	if got := emu.Events().Last(); got != "Server stopped" {
		t.Errorf("last event = %q", got)
	}
}

func TestRunAutoStartsSimulation(t *testing.T) {
	cfg := newTestConfig()
	cfg.SimulatorOptions.AutoStart = true
	s, err := cfg.NewEmulatorServer()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(s, ctx)
	waitFor(t, "simulation", func() bool { return s.Emulator().Status().Simulating })

	cancel()
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
	if s.Emulator().Status().Simulating {
		t.Error("simulation still running after Run returned")
	}
}

func TestRunEndsWhenConsoleQuits(t *testing.T) {
	s, err := newTestConfig().NewEmulatorServer()
	if err != nil {
		t.Fatal(err)
	}

	stopped := make(chan struct{})
	s.runners = []Runner{runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	})}
	s.console = runnerFunc(func(ctx context.Context) error { return nil })

	select {
	case err := <-runAsync(s, context.Background()):
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the console quit")
	}

	select {
	case <-stopped:
	default:
		t.Error("runner was not cancelled")
	}
}

func TestRunReturnsRunnerError(t *testing.T) {
	s, err := newTestConfig().NewEmulatorServer()
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("address in use")
	s.runners = []Runner{runnerFunc(func(ctx context.Context) error { return boom })}

	if err := <-runAsync(s, context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want %v", err, boom)
	}
	if s.Emulator().Status().Server.Listening {
		t.Error("server left listening")
	}
}

func TestEmulatorID(t *testing.T) {
	opts := options.NewMqttOptions()
	opts.EmulatorID = "bench-1"
	if got := EmulatorID(opts); got != "bench-1" {
		t.Errorf("EmulatorID() = %q", got)
	}

	opts.EmulatorID = ""
	if EmulatorID(opts) == "" {
		t.Error("empty fallback id")
	}
}
