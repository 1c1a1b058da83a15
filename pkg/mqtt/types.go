package mqtt

import (
	"context"
	"errors"
)

// ErrNotStarted is returned by operations that need a broker connection
// before Start has been called.
var ErrNotStarted = errors.New("mqtt client not started")

// MessageHandler processes one message delivered on a subscribed topic.
// Handlers of one client are called one at a time, in arrival order.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the broker connection used by the emulator's telemetry bridge.
type Client interface {
	// Start begins connecting in the background and returns at once.
	// The connection is re-established until Disconnect is called or ctx ends.
	Start(ctx context.Context) error

	// Disconnect closes the connection and stops message delivery.
	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe routes messages matching the filter to handler. A filter
	// registered while offline is sent to the broker on the next connect,
	// and every filter is restored after a reconnect.
	Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error

	Unsubscribe(ctx context.Context, filter string) error

	// AwaitConnection blocks until the broker accepts the connection or ctx ends.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool
}
