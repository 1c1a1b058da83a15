package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	defaultKeepAlive      = 60
	defaultConnectTimeout = 5 * time.Second
)

// ClientConfig describes how to reach the broker.
type ClientConfig struct {
	// BrokerURL accepts mqtt, tcp, ssl, tls, mqtts, ws and wss schemes.
	BrokerURL string
	// ClientID defaults to "sensor-emulator-<random>".
	ClientID string
	Username string
	Password string

	// KeepAlive is in seconds.
	KeepAlive uint16
	// SessionExpiry is in seconds; 0 drops the session with the connection.
	SessionExpiry  uint32
	ConnectTimeout time.Duration
	CleanStart     bool

	// InsecureSkipVerify only applies to TLS schemes.
	InsecureSkipVerify bool
}

func (c *ClientConfig) complete() {
	if c.ClientID == "" {
		c.ClientID = "sensor-emulator-" + uuid.NewString()[:8]
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = defaultKeepAlive
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
}

// Validate reports the first problem that would stop the client from connecting.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return fmt.Errorf("broker url: %w", err)
	}

	tlsScheme := false
	switch u.Scheme {
	case "mqtt", "tcp", "ws":
	case "ssl", "tls", "mqtts", "wss":
		tlsScheme = true
	default:
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker url %q has no host", c.BrokerURL)
	}
	if c.InsecureSkipVerify && !tlsScheme {
		return fmt.Errorf("insecure-skip-verify set for non-TLS broker %q", c.BrokerURL)
	}
	if c.Password != "" && c.Username == "" {
		return errors.New("password set without username")
	}
	return nil
}
