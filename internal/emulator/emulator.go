package emulator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/core"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
)

// Runner is anything that runs alongside the emulator until its context is done:
// the HTTP API, the telemetry mirror and the console.
type Runner interface {
	Start(ctx context.Context) error
}

// EmulatorServer owns the emulator core and the runners wired around it.
type EmulatorServer struct {
	emulator  *core.Emulator
	runners   []Runner
	console   Runner
	autoStart bool
}

func (s *EmulatorServer) Emulator() *core.Emulator {
	return s.emulator
}

// Run starts the TCP server and every runner, and blocks until ctx is done,
// a runner fails or the operator quits the console. The emulator is always
// disconnected on return.
func (s *EmulatorServer) Run(ctx context.Context) error {
	defer s.emulator.Disconnect()

	// A bind failure is already in the event log; the server can be
	// started again from any front-end.
	if err := s.emulator.StartServer(); err != nil {
		log.Warn("TCP server did not start", "error", err)
	}

	if s.autoStart {
		if err := s.emulator.StartCANSimulation(); err != nil {
			log.Error(err, "Failed to start CAN simulation")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	for _, r := range s.runners {
		g.Go(func() error {
			return r.Start(ctx)
		})
	}

	if s.console != nil {
		g.Go(func() error {
			// Quitting the console ends the emulator.
			defer cancel()
			return s.console.Start(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	log.Info("Sensor emulator running", "runners", len(s.runners), "console", s.console != nil)
	return g.Wait()
}
