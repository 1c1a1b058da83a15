package simulator

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/brutella/can"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/sensor-emulator/pkg/options"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCadence(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	s := New(options.NewSimulatorOptions(), fc)

	var n atomic.Int32
	var last atomic.Value
	if err := s.Start(func(r sensor.Record) {
		last.Store(r)
		n.Add(1)
	}); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	waitFor(t, "first emission", func() bool { return n.Load() == 1 && fc.HasWaiters() })

	// Four more intervals: five emissions in total, one per interval.
	for i := 2; i <= 5; i++ {
		fc.Step(time.Second)
		waitFor(t, "tick", func() bool { return n.Load() == int32(i) })
	}

	fc.Step(500 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if got := n.Load(); got != 5 {
		t.Errorf("emissions = %d, want 5", got)
	}

	want := sensor.Record{Pressure: 50, TPMS: 56}
	if got := last.Load().(sensor.Record); got != want {
		t.Errorf("record = %v, want %v", got, want)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	s := New(nil, fc)

	s.Stop()

	var n atomic.Int32
	emit := func(sensor.Record) { n.Add(1) }
	if err := s.Start(emit); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(emit); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first emission", func() bool { return n.Load() >= 1 })
	if !s.Running() {
		t.Error("not running after Start")
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("running after Stop")
	}

	got := n.Load()
	fc.Step(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if n.Load() != got {
		t.Errorf("emitted after Stop: %d -> %d", got, n.Load())
	}
	if got != 1 {
		t.Errorf("double Start emitted %d initial records, want 1", got)
	}
}

func TestStartRequiresEmitFunc(t *testing.T) {
	if err := New(nil, nil).Start(nil); err == nil {
		t.Error("expected an error")
	}
}

func TestSetInterval(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	s := New(nil, fc)

	if err := s.SetInterval(0); err == nil {
		t.Error("expected an error for a zero interval")
	}

	var n atomic.Int32
	if err := s.Start(func(sensor.Record) { n.Add(1) }); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	waitFor(t, "first emission", func() bool { return n.Load() == 1 && fc.HasWaiters() })

	if err := s.SetInterval(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	if s.Interval() != 5*time.Second {
		t.Errorf("Interval() = %s", s.Interval())
	}

	// Wait for the loop to swap tickers: the old ticker is stopped and a new one registered.
	time.Sleep(20 * time.Millisecond)
	fc.Step(time.Second)
	time.Sleep(20 * time.Millisecond)
	if n.Load() != 1 {
		t.Errorf("emitted on the old interval: %d", n.Load())
	}

	fc.Step(4 * time.Second)
	waitFor(t, "tick on new interval", func() bool { return n.Load() == 2 })
}

func TestFrameIDIsStamped(t *testing.T) {
	opts := options.NewSimulatorOptions()
	opts.FrameID = 0x2A0
	s := New(opts, testingclock.NewFakeClock(time.Now()))

	var seen atomic.Uint32
	s.parse = func(f can.Frame) (sensor.Record, error) {
		seen.Store(f.ID)
		return sensor.FromCANFrame(f)
	}

	if err := s.Start(func(sensor.Record) {}); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	waitFor(t, "frame", func() bool { return seen.Load() == 0x2A0 })
}
