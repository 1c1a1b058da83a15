package topic

import "testing"

func TestTopicBuilder(t *testing.T) {
	b := NewTopicBuilder("emulator/v1")

	tests := []struct {
		got, want string
	}{
		{b.Sensors(DirectionReceived, "bench-1"), "emulator/v1/sensors/received/bench-1"},
		{b.Sensors(DirectionSent, "bench-1"), "emulator/v1/sensors/sent/bench-1"},
		{b.Sensors(DirectionSimulated, "bench-1"), "emulator/v1/sensors/simulated/bench-1"},
		{b.SensorsWildcard(), "emulator/v1/sensors/#"},
		{b.Inject("bench-1"), "emulator/v1/inject/bench-1"},
		{b.InjectWildcard(), "emulator/v1/inject/+"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
