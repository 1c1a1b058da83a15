// Package simulator produces sensor records from synthesized CAN frames at a fixed cadence.
package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/sensor-emulator/internal/pkg/metrics"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// EmitFunc receives every decoded record, on the simulator goroutine.
type EmitFunc func(sensor.Record)

// Simulator is a cancellable periodic task. The first frame is emitted as soon
// as it starts, then one per interval.
type Simulator struct {
	clock  clock.WithTicker
	parse  sensor.FrameParser
	logger log.Logger

	mu       sync.Mutex
	interval time.Duration
	frameID  uint32
	cancel   context.CancelFunc
	done     chan struct{}
	reset    chan time.Duration
}

// New returns a stopped simulator. A nil clk means the real clock.
func New(opts *options.SimulatorOptions, clk clock.WithTicker) *Simulator {
	if opts == nil {
		opts = options.NewSimulatorOptions()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Simulator{
		clock:    clk,
		parse:    sensor.FromCANFrame,
		logger:   log.WithName("simulator"),
		interval: opts.Interval,
		frameID:  opts.FrameID,
	}
}

// Start launches the loop. It is a no-op while running.
func (s *Simulator) Start(onEmit EmitFunc) error {
	if onEmit == nil {
		return errors.New("simulator: nil emit function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.reset = make(chan time.Duration, 1)

	go s.run(ctx, onEmit, s.interval, s.frameID, s.done, s.reset)

	s.logger.Info("CAN simulation started", "interval", s.interval, "frameID", s.frameID)
	return nil
}

// Stop cancels the loop and waits for it to exit. It is a no-op while stopped.
// An emission already in progress completes first.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done, s.reset = nil, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("CAN simulation stopped")
}

// Running reports whether the loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Interval returns the current emission interval.
func (s *Simulator) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the cadence; a running loop picks it up without restarting.
func (s *Simulator) SetInterval(d time.Duration) error {
	if d <= 0 {
		return errors.New("simulator: interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = d
	if s.reset != nil {
		// Keep only the latest value.
		select {
		case <-s.reset:
		default:
		}
		s.reset <- d
	}
	return nil
}

func (s *Simulator) run(ctx context.Context, onEmit EmitFunc, interval time.Duration, frameID uint32, done chan struct{}, reset <-chan time.Duration) {
	defer close(done)

	ticker := s.clock.NewTicker(interval)
	defer func() { ticker.Stop() }()

	s.emit(onEmit, frameID)
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-reset:
			ticker.Stop()
			ticker = s.clock.NewTicker(d)
			s.logger.Debug("Interval changed", "interval", d)
		case <-ticker.C():
			s.emit(onEmit, frameID)
		}
	}
}

func (s *Simulator) emit(onEmit EmitFunc, frameID uint32) {
	frame := sensor.SimulatedFrame()
	frame.ID = frameID
	metrics.CANFramesSimulated.Inc()

	r, err := s.parse(frame)
	if err != nil {
		s.logger.Error(err, "Dropping undecodable CAN frame", "id", frame.ID)
		return
	}
	onEmit(r)
}
