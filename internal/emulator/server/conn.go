package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/autopeer-io/sensor-emulator/internal/pkg/metrics"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// ConnInfo describes an attached client.
type ConnInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	Host        string    `json:"host"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Conn is the single active client socket. It is owned by the Server; callers
// reach it only through Server.Send.
type Conn struct {
	info ConnInfo
	nc   net.Conn

	// wmu keeps concurrent senders from interleaving partial frames.
	wmu sync.Mutex

	// closed is set by whoever closes the socket first.
	closed atomic.Bool
}

func newConn(nc net.Conn) *Conn {
	remote := nc.RemoteAddr().String()
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}

	return &Conn{
		nc: nc,
		info: ConnInfo{
			ID:          uuid.NewString(),
			RemoteAddr:  remote,
			Host:        host,
			ConnectedAt: time.Now(),
		},
	}
}

func (c *Conn) Info() ConnInfo { return c.info }

// Send writes one frame. The whole frame goes out in a single Write under wmu.
func (c *Conn) Send(r sensor.Record, timeout time.Duration) error {
	frame, err := sensor.Encode(r)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if timeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(timeout))
	}

	start := time.Now()
	_, err = c.nc.Write(frame)
	metrics.SendLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return &WriteError{Remote: c.info.RemoteAddr, Err: err}
	}
	return nil
}

// Close closes the socket on behalf of the server. The receive loop of a
// connection closed this way ends without logging.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.nc.Close()
}

// release closes the socket after the receive loop ended. It reports false
// when the server had already closed it.
func (c *Conn) release() bool {
	if c.closed.Swap(true) {
		return false
	}
	_ = c.nc.Close()
	return true
}

// deadlineReader arms the read deadline before each read so an idle client is
// dropped after timeout.
type deadlineReader struct {
	nc      net.Conn
	timeout time.Duration
}

func (r deadlineReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		_ = r.nc.SetReadDeadline(time.Now().Add(r.timeout))
	}
	return r.nc.Read(p)
}
