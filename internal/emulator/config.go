package emulator

import (
	"fmt"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/api"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/bridge"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/console"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/core"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/server"
	"github.com/autopeer-io/sensor-emulator/internal/emulator/simulator"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
)

type Config struct {
	TCPOptions       *options.TCPOptions
	HttpOptions      *options.HttpOptions
	MqttOptions      *options.MqttOptions
	SimulatorOptions *options.SimulatorOptions

	// Console runs the terminal front-end. Without it the emulator is headless
	// and driven through the HTTP API or MQTT inject topic.
	Console bool
}

func (cfg *Config) NewEmulatorServer() (*EmulatorServer, error) {
	// 1. Core: the event log is shared by the connection manager and the facade.
	events := eventlog.New(log.WithName("events"))
	srv := server.New(cfg.TCPOptions, events)
	sim := simulator.New(cfg.SimulatorOptions, nil)
	emu := core.New(srv, sim, events)

	// 2. Control surfaces and the telemetry mirror.
	var runners []Runner
	if cfg.HttpOptions.Enabled() {
		runners = append(runners, api.NewServer(cfg.HttpOptions, emu))
	}

	if cfg.MqttOptions.Enabled() {
		client, err := InitializeMQTTClient(cfg.MqttOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to init telemetry mirror: %w", err)
		}
		runners = append(runners, bridge.New(client, cfg.MqttOptions, EmulatorID(cfg.MqttOptions), emu))
	}

	// 3. Front-end.
	var ui Runner
	if cfg.Console {
		ui = console.New(emu)
	}

	return &EmulatorServer{
		emulator:  emu,
		runners:   runners,
		console:   ui,
		autoStart: cfg.SimulatorOptions.AutoStart,
	}, nil
}
