package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/eventlog"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
)

const (
	streamBuffer = 256
	writeWait    = 5 * time.Second
	pingPeriod   = 30 * time.Second
)

// snapshotMessage is the first message of a stream: the log as it is now.
type snapshotMessage struct {
	Type  string   `json:"type"`
	Lines []string `json:"lines"`
}

// streamEvents upgrades to a websocket, sends the current log, then every change.
// A client that falls more than streamBuffer events behind is disconnected.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := s.ctrl.Events()
	ch := make(chan eventlog.Event, streamBuffer)
	overflow := make(chan struct{})
	var overflowOnce sync.Once

	// Subscribe before the snapshot so no change falls between the two.
	cancel := events.Subscribe(func(ev eventlog.Event) {
		select {
		case ch <- ev:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	defer cancel()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snapshotMessage{Type: "snapshot", Lines: events.Snapshot()}); err != nil {
		return
	}

	// Reads only serve to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-overflow:
			log.Warn("Event stream client too slow, closing", "remote", r.RemoteAddr)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"), time.Now().Add(writeWait))
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
			return
		case <-gone:
			return
		}
	}
}
