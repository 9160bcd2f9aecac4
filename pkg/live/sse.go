package live

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultWriteTimeout = 10 * time.Second

// HandlerConfig configures the HTTP transports.
type HandlerConfig[T any] struct {
	// Format renders a value for the wire. Default: fmt.Sprint.
	Format func(T) string

	// WriteTimeout bounds each write to a client.
	WriteTimeout time.Duration

	// Logger receives transport errors. Default: slog.Default().
	Logger *slog.Logger
}

func (c HandlerConfig[T]) withDefaults() HandlerConfig[T] {
	if c.Format == nil {
		c.Format = func(v T) string { return fmt.Sprint(v) }
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// SSEEvent formats one server-sent event of type "message". Multi-line
// data is split into several data fields.
func SSEEvent(data string) string {
	var b strings.Builder
	b.WriteString("event: message\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// SSEHandler streams the hub's values as server-sent events, starting with
// the current value.
func SSEHandler[T any](h *Hub[T], config HandlerConfig[T]) http.Handler {
	config = config.withDefaults()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		rc := http.NewResponseController(w)
		deadlines := true
		send := func(v T) error {
			if deadlines {
				if err := rc.SetWriteDeadline(time.Now().Add(config.WriteTimeout)); err != nil {
					deadlines = false
				}
			}
			if _, err := fmt.Fprint(w, SSEEvent(config.Format(v))); err != nil {
				return err
			}
			return rc.Flush()
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sub, current := h.SubscribeCurrent()
		defer sub.Close()

		log := config.Logger.With("subscriber", sub.ID, "transport", "sse")
		log.Debug("live subscriber connected")
		defer log.Debug("live subscriber disconnected")

		if err := send(current); err != nil {
			return
		}

		for {
			select {
			case v, ok := <-sub.C:
				if !ok {
					return
				}
				if err := send(v); err != nil {
					log.Debug("sse write failed", "error", err)
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	})
}
