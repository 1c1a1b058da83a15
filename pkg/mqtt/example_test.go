package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/mqtt"
	"github.com/autopeer-io/sensor-emulator/pkg/mqtt/topic"
)

// ExampleClient mirrors a record to a broker and listens for injected records,
// the way the emulator's telemetry bridge uses the client.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "sensor-emulator-example",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	// Start returns immediately; autopaho connects and reconnects in the background.
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}
	defer client.Disconnect(ctx)

	topics := topic.NewTopicBuilder("emulator/v1")

	// Handlers run one at a time, in the order messages arrive.
	inject := func(ctx context.Context, t string, payload []byte) {
		fmt.Printf("inject on %s: %s\n", t, payload)
	}
	if err := client.Subscribe(ctx, topics.Inject("bench-1"), 1, inject); err != nil {
		log.Error(err, "Failed to subscribe")
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	payload := []byte(`{"pressure":50,"tpms":56,"temperature":0,"lightsOn":false,"fuelLevel":50}`)
	if err := client.Publish(ctx, topics.Sensors(topic.DirectionSent, "bench-1"), 1, false, payload); err != nil {
		log.Error(err, "Failed to publish")
	}
}
