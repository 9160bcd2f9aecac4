package server

import (
	"context"
	"net/http"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/render"
)

// page serves one document. ?mode= overrides the configured mode.
func (s *Server) page(data render.PageData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := s.config.Mode
		if q := r.URL.Query().Get("mode"); q != "" {
			m, err := render.ParseMode(q)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mode = m
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.config.RenderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if mode.Streaming() {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Cache-Control", "no-cache")
		}

		tw := &trackingWriter{ResponseWriter: w}
		err := s.config.Renderer.RenderPage(ctx, tw, mode, data)
		if err == nil {
			return
		}

		log := loggerFrom(r.Context(), s.logger)
		if tw.wrote {
			// Headers are gone; the client sees a truncated stream.
			log.Error("render failed mid-stream", "mode", mode.String(), "code", errors.Code(err), "error", err)
			return
		}
		log.Error("render failed", "mode", mode.String(), "code", errors.Code(err), "error", err)
		w.Header().Del("X-Content-Type-Options")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// trackingWriter records whether anything reached the client.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
