package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/mqtt/topic"
)

const (
	reconnectDelay = 3 * time.Second
	inboxSize      = 64
)

type route struct {
	qos     byte
	handler MessageHandler
}

type delivery struct {
	topic   string
	payload []byte
}

type client struct {
	cfg *ClientConfig
	log log.Logger

	cm     *autopaho.ConnectionManager
	online atomic.Bool

	mu     sync.RWMutex
	routes map[string]route

	inbox    chan delivery
	done     chan struct{}
	stopOnce sync.Once
}

// NewClient validates cfg, fills in defaults and returns an unstarted client.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}
	cfg.complete()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &client{
		cfg:    cfg,
		log:    log.WithName("mqtt").WithValues("clientID", cfg.ClientID),
		routes: make(map[string]route),
		inbox:  make(chan delivery, inboxSize),
		done:   make(chan struct{}),
	}, nil
}

func (c *client) Start(ctx context.Context) error {
	broker, err := url.Parse(c.cfg.BrokerURL)
	if err != nil {
		return err
	}

	cm, err := autopaho.NewConnection(ctx, autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{broker},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(reconnectDelay),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg:                        &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify},
		OnConnectionUp:                c.connectionUp,
		OnConnectError: func(err error) {
			c.log.Warn("Broker connection attempt failed", "broker", c.cfg.BrokerURL, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.connectionLost,
			OnServerDisconnect: c.serverDisconnect,
			OnPublishReceived:  []func(paho.PublishReceived) (bool, error){c.enqueue},
		},
	})
	if err != nil {
		return err
	}
	c.cm = cm

	go c.dispatch(ctx)

	c.log.Info("MQTT client started", "broker", c.cfg.BrokerURL)
	return nil
}

func (c *client) Disconnect(ctx context.Context) {
	if c.cm == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.done) })
	if err := c.cm.Disconnect(ctx); err != nil {
		c.log.Debug("Disconnect did not complete cleanly", "error", err)
	}
	c.online.Store(false)
	c.log.Info("MQTT client disconnected")
}

func (c *client) Publish(ctx context.Context, name string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return ErrNotStarted
	}
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   name,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *client) Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return ErrNotStarted
	}

	c.mu.Lock()
	c.routes[filter] = route{qos: byte(qos), handler: handler}
	c.mu.Unlock()

	if !c.online.Load() {
		c.log.Debug("Subscription queued until connected", "filter", filter)
		return nil
	}

	sub := &paho.Subscribe{Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: byte(qos)}}}
	if _, err := c.cm.Subscribe(ctx, sub); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	c.log.Info("Subscribed", "filter", filter, "qos", qos)
	return nil
}

func (c *client) Unsubscribe(ctx context.Context, filter string) error {
	if c.cm == nil {
		return ErrNotStarted
	}

	c.mu.Lock()
	delete(c.routes, filter)
	c.mu.Unlock()

	if !c.online.Load() {
		return nil
	}
	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{filter}})
	return err
}

func (c *client) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return ErrNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *client) IsConnected() bool {
	return c.online.Load()
}

// connectionUp restores every registered filter in a single SUBSCRIBE.
func (c *client) connectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.online.Store(true)

	sub := &paho.Subscribe{Subscriptions: c.subscriptions()}
	if len(sub.Subscriptions) == 0 {
		c.log.Info("Connected to broker", "broker", c.cfg.BrokerURL)
		return
	}
	if _, err := cm.Subscribe(context.Background(), sub); err != nil {
		c.log.Error(err, "Failed to restore subscriptions", "count", len(sub.Subscriptions))
		return
	}
	c.log.Info("Connected to broker", "broker", c.cfg.BrokerURL, "subscriptions", len(sub.Subscriptions))
}

func (c *client) connectionLost(err error) {
	c.online.Store(false)
	c.log.Error(err, "Broker connection lost")
}

func (c *client) serverDisconnect(d *paho.Disconnect) {
	c.online.Store(false)
	var reason string
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	c.log.Warn("Broker closed the connection", "code", d.ReasonCode, "reason", reason)
}

func (c *client) subscriptions() []paho.SubscribeOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()

	opts := make([]paho.SubscribeOptions, 0, len(c.routes))
	for filter, r := range c.routes {
		opts = append(opts, paho.SubscribeOptions{Topic: filter, QoS: r.qos})
	}
	return opts
}

// enqueue hands a received message to the dispatcher. It blocks while the
// inbox is full, which holds back paho's reader.
func (c *client) enqueue(p paho.PublishReceived) (bool, error) {
	select {
	case c.inbox <- delivery{topic: p.Packet.Topic, payload: p.Packet.Payload}:
	case <-c.done:
	}
	return true, nil
}

func (c *client) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.stopOnce.Do(func() { close(c.done) })
			return
		case <-c.done:
			return
		case d := <-c.inbox:
			c.deliver(ctx, d)
		}
	}
}

func (c *client) deliver(ctx context.Context, d delivery) {
	handlers := c.match(d.topic)
	if len(handlers) == 0 {
		c.log.Debug("Dropping message on unrouted topic", "topic", d.topic)
		return
	}
	for _, h := range handlers {
		h(ctx, d.topic, d.payload)
	}
}

func (c *client) match(name string) []MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var handlers []MessageHandler
	for filter, r := range c.routes {
		if topic.Match(filter, name) {
			handlers = append(handlers, r.handler)
		}
	}
	return handlers
}
