package emulator

import (
	"os"

	"github.com/google/uuid"

	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/mqtt"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
)

func InitializeMQTTClient(opts *options.MqttOptions) (mqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		cfg.ClientID = "cpeer-sensor-emulator-" + EmulatorID(opts)
	}

	mqttclient, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client")
		return nil, err
	}

	return mqttclient, nil
}

// EmulatorID returns the configured emulator id, falling back to the hostname
// and then to a random id.
func EmulatorID(opts *options.MqttOptions) string {
	if opts.EmulatorID != "" {
		return opts.EmulatorID
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return uuid.NewString()[:8]
}
