package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultRequestTimeout = 10 * time.Second

// Timeout gives requests without a deadline one of d (DefaultRequestTimeout if
// d is not positive). WebSocket upgrades are long-lived and pass through.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = DefaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok || websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
