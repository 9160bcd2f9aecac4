package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig adds upgrade options to HandlerConfig.
type WebSocketConfig[T any] struct {
	HandlerConfig[T]

	// CheckOrigin validates the Origin header. nil uses gorilla's
	// same-origin check.
	CheckOrigin func(r *http.Request) bool

	ReadBufferSize  int
	WriteBufferSize int
}

// WebSocketHandler pushes the hub's values as text frames, starting with
// the current value. Messages from the client are ignored; the connection
// ends when the client closes it or the hub closes.
func WebSocketHandler[T any](h *Hub[T], config WebSocketConfig[T]) http.Handler {
	config.HandlerConfig = config.HandlerConfig.withDefaults()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			config.Logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		sub, current := h.SubscribeCurrent()
		defer sub.Close()

		log := config.Logger.With("subscriber", sub.ID, "transport", "websocket")
		log.Debug("live subscriber connected")
		defer log.Debug("live subscriber disconnected")

		// The read loop only notices the client going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(v T) error {
			conn.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
			return conn.WriteMessage(websocket.TextMessage, []byte(config.Format(v)))
		}

		if err := send(current); err != nil {
			return
		}

		for {
			select {
			case v, ok := <-sub.C:
				if !ok {
					conn.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"))
					return
				}
				if err := send(v); err != nil {
					log.Debug("websocket write failed", "error", err)
					return
				}
			case <-gone:
				return
			case <-r.Context().Done():
				return
			}
		}
	})
}
