// Package bridge mirrors sensor records to an MQTT broker and forwards
// records injected through the broker to the TCP client.
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/core"
	"github.com/autopeer-io/sensor-emulator/internal/pkg/metrics"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	pkgmqtt "github.com/autopeer-io/sensor-emulator/pkg/mqtt"
	"github.com/autopeer-io/sensor-emulator/pkg/mqtt/topic"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// queueSize bounds the records waiting to be published. Overflow is dropped.
const queueSize = 128

// Emulator is what the bridge observes and drives. *core.Emulator implements it.
type Emulator interface {
	OnRecordReceived(fn func(sensor.Record)) (cancel func())
	OnRecordSent(fn func(core.Source, sensor.Record)) (cancel func())
	Send(src core.Source, r sensor.Record) error
}

var _ Emulator = (*core.Emulator)(nil)

type message struct {
	topic   string
	payload []byte
}

// Bridge implements the MQTT telemetry mirror.
type Bridge struct {
	client     pkgmqtt.Client
	topics     *topic.TopicBuilder
	emu        Emulator
	emulatorID string
	qos        int
	inject     bool

	queue chan message
}

// New creates a bridge publishing under opts.TopicRoot with emulatorID as the last topic level.
func New(client pkgmqtt.Client, opts *options.MqttOptions, emulatorID string, emu Emulator) *Bridge {
	return &Bridge{
		client:     client,
		topics:     topic.NewTopicBuilder(opts.TopicRoot),
		emu:        emu,
		emulatorID: emulatorID,
		qos:        opts.QoS,
		inject:     opts.Inject,
		queue:      make(chan message, queueSize),
	}
}

// Start connects to the broker, mirrors records until ctx is done, then disconnects.
// The broker being unreachable never blocks the emulator: records queue up and
// overflow is dropped while autopaho reconnects.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mqtt client: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.client.Disconnect(shutdownCtx)
	}()

	if b.inject {
		injectTopic := b.topics.Inject(b.emulatorID)
		if err := b.client.Subscribe(ctx, injectTopic, b.qos, b.handleInject); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", injectTopic, err)
		}
	}

	cancelRecv := b.emu.OnRecordReceived(func(r sensor.Record) {
		b.enqueue(topic.DirectionReceived, r)
	})
	defer cancelRecv()

	cancelSent := b.emu.OnRecordSent(func(src core.Source, r sensor.Record) {
		dir := topic.DirectionSent
		if src == core.SourceSimulator {
			dir = topic.DirectionSimulated
		}
		b.enqueue(dir, r)
	})
	defer cancelSent()

	log.Info("Telemetry mirror running", "root", b.topics.Root(), "emulatorID", b.emulatorID, "inject", b.inject)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-b.queue:
			if err := b.client.Publish(ctx, m.topic, b.qos, false, m.payload); err != nil {
				metrics.MirrorDropped.WithLabelValues("publish_failed").Inc()
				log.Warn("Failed to mirror record", "topic", m.topic, "error", err)
			}
		}
	}
}

func (b *Bridge) enqueue(dir topic.Direction, r sensor.Record) {
	payload, err := sensor.MarshalJSON(r)
	if err != nil {
		log.Error(err, "Failed to encode record for mirror")
		return
	}

	select {
	case b.queue <- message{topic: b.topics.Sensors(dir, b.emulatorID), payload: payload}:
	default:
		metrics.MirrorDropped.WithLabelValues("queue_full").Inc()
	}
}

func (b *Bridge) handleInject(ctx context.Context, t string, payload []byte) {
	r, err := sensor.UnmarshalJSON(payload)
	if err != nil {
		log.Warn("Ignoring malformed injected record", "topic", t, "error", err)
		return
	}
	if err := b.emu.Send(core.SourceInject, r); err != nil {
		log.Warn("Injected record not delivered", "topic", t, "error", err)
	}
}
