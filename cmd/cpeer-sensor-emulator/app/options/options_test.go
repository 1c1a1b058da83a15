package options

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		name    string
		console bool
		paths   []string
		want    []string
	}{
		{"console redirects stdout", true, []string{"stdout"}, []string{"/tmp/emu.log"}},
		{"console keeps files", true, []string{"stderr", "/var/log/emu.log"}, []string{"/var/log/emu.log", "/tmp/emu.log"}},
		{"file only", true, []string{"/var/log/emu.log"}, []string{"/var/log/emu.log"}},
		{"headless untouched", false, []string{"stdout"}, []string{"stdout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewEmulatorOptions()
			o.Console = tt.console
			o.ConsoleLogFile = "/tmp/emu.log"
			o.Log.OutputPaths = tt.paths

			if err := o.Complete(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, o.Log.OutputPaths); diff != "" {
				t.Errorf("output paths (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateAggregates(t *testing.T) {
	o := NewEmulatorOptions()
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	o.TCPOptions.Addr = "nowhere"
	o.SimulatorOptions.Interval = 0
	o.Log.Level = "chatty"

	err := o.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	type aggregate interface{ Errors() []error }
	agg, ok := err.(aggregate)
	if !ok {
		t.Fatalf("error %T is not an aggregate", err)
	}
	if n := len(agg.Errors()); n != 3 {
		t.Errorf("got %d errors, want 3: %v", n, err)
	}
}

func TestConfig(t *testing.T) {
	o := NewEmulatorOptions()
	o.Console = false

	cfg, err := o.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Console || cfg.TCPOptions != o.TCPOptions || cfg.MqttOptions != o.MqttOptions {
		t.Errorf("config does not carry the options: %+v", cfg)
	}
}
