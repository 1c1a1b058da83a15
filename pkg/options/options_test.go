package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:6666", false},
		{":6666", false},
		{"localhost:0", false},
		{"[::1]:8080", false},
		{"6666", true},
		{"0.0.0.0:http", true},
		{"0.0.0.0:70000", true},
		{"example.com:80", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) = %v, wantErr %t", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultsAreValid(t *testing.T) {
	for name, o := range map[string]IOptions{
		"tcp":       NewTCPOptions(),
		"http":      NewHttpOptions(),
		"mqtt":      NewMqttOptions(),
		"simulator": NewSimulatorOptions(),
	} {
		if errs := o.Validate(); len(errs) != 0 {
			t.Errorf("%s defaults invalid: %v", name, errs)
		}
	}
}

func TestTCPOptionsFlags(t *testing.T) {
	o := NewTCPOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	if err := fs.Parse([]string{"--tcp.addr=127.0.0.1:7777", "--tcp.read-timeout=30s"}); err != nil {
		t.Fatal(err)
	}
	if o.Addr != "127.0.0.1:7777" || o.ReadTimeout != 30*time.Second {
		t.Errorf("flags not applied: %+v", o)
	}
}

func TestHttpOptionsValidate(t *testing.T) {
	o := NewHttpOptions()
	o.Addr = ""
	if o.Enabled() || len(o.Validate()) != 0 {
		t.Fatal("an empty address should disable the API without errors")
	}

	o.Addr = "0.0.0.0:99999"
	o.Network = "unix"
	o.Timeout = 0
	if errs := o.Validate(); len(errs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(errs), errs)
	}
}

func TestMqttOptionsValidate(t *testing.T) {
	o := NewMqttOptions()
	if o.Enabled() {
		t.Fatal("mirror enabled without a broker")
	}

	o.Broker = "localhost"
	o.QoS = 3
	o.EmulatorID = "a/b"
	if errs := o.Validate(); len(errs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(errs), errs)
	}

	o.Broker = "tcp://localhost:1883"
	o.QoS = 1
	o.EmulatorID = "bench-1"
	if errs := o.Validate(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}

	cfg := o.ToClientConfig()
	if cfg.KeepAlive != 60 || cfg.BrokerURL != o.Broker {
		t.Errorf("unexpected client config: %+v", cfg)
	}
}

func TestSimulatorOptionsValidate(t *testing.T) {
	o := NewSimulatorOptions()
	o.Interval = 0
	o.FrameID = 0x20000000
	if errs := o.Validate(); len(errs) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(errs), errs)
	}
}
