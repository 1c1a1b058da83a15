// Package client is a minimal peer for the sensor stream. It plays the part of
// the vehicle-side application when exercising the emulator by hand.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// Client is one TCP connection to the emulator.
type Client struct {
	conn net.Conn
	dec  *sensor.Decoder

	wmu          sync.Mutex
	writeTimeout time.Duration
}

// Dial connects to the emulator at addr.
func Dial(ctx context.Context, addr string, writeTimeout time.Duration) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	log.Debug("Connected to emulator", "addr", conn.RemoteAddr())
	return New(conn, writeTimeout), nil
}

// New wraps an established connection.
func New(conn net.Conn, writeTimeout time.Duration) *Client {
	return &Client{
		conn:         conn,
		dec:          sensor.NewDecoder(conn),
		writeTimeout: writeTimeout,
	}
}

// Send writes one framed record.
func (c *Client) Send(r sensor.Record) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return sensor.WriteTo(c.conn, r)
}

// Recv blocks for the next record. It returns io.EOF once the emulator closes
// the stream.
func (c *Client) Recv() (sensor.Record, error) {
	return c.dec.Decode()
}

// Watch calls fn for every record until the emulator hangs up (nil), the
// stream is corrupt (error) or ctx is done (nil).
func (c *Client) Watch(ctx context.Context, fn func(sensor.Record)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		r, err := c.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(r)
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
