package serverfn

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/suspense/internal/errors"
)

// DefaultMaxBody limits request bodies when HandlerConfig.MaxBody is zero.
const DefaultMaxBody int64 = 1 << 20

// Recorder is told about every call. telemetry.Metrics implements it.
type Recorder interface {
	RecordServerFn(name string, err error)
}

// HandlerConfig configures the HTTP handler.
type HandlerConfig struct {
	// Logger receives failures. Default: slog.Default().
	Logger *slog.Logger

	// Recorder counts calls. Optional.
	Recorder Recorder

	// MaxBody caps the request body size in bytes.
	MaxBody int64

	// Param is the chi URL parameter holding the function name
	// (default: "name"). Without it the last path segment is used.
	Param string
}

// Handler returns an http.Handler that runs server functions.
func (r *Registry) Handler(config HandlerConfig) http.Handler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxBody <= 0 {
		config.MaxBody = DefaultMaxBody
	}
	if config.Param == "" {
		config.Param = "name"
	}
	return &handler{reg: r, config: config}
}

type handler struct {
	reg    *Registry
	config HandlerConfig
}

func (h *handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := h.name(req)
	fn, ok := h.reg.Lookup(name)
	if !ok {
		h.record(name, errors.New("E080"))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, errors.New("E080").Message)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, h.config.MaxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if stderrors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.record(name, err)
		http.Error(w, err.Error(), status)
		return
	}

	if isForm(req) {
		if body, err = formToJSON(body); err != nil {
			h.record(name, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	payload, err := fn(req.Context(), body)
	h.record(name, err)
	if err != nil {
		h.config.Logger.Error("server function failed",
			"name", name,
			"error", errors.FromError(err, "E081"))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if acceptsJSON(req) {
		w.WriteHeader(http.StatusOK)
	} else {
		w.Header().Set("Location", redirectTarget(req))
		w.WriteHeader(http.StatusSeeOther)
	}
	w.Write(payload)
}

func (h *handler) name(req *http.Request) string {
	if name := chi.URLParam(req, h.config.Param); name != "" {
		return name
	}
	return path.Base(req.URL.Path)
}

func (h *handler) record(name string, err error) {
	if h.config.Recorder != nil {
		h.config.Recorder.RecordServerFn(name, err)
	}
}

func isForm(req *http.Request) bool {
	mediaType, _, _ := strings.Cut(req.Header.Get("Content-Type"), ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "application/x-www-form-urlencoded")
}

// formToJSON turns a url-encoded form into a JSON object so form posts
// reach the same decoder as fetch calls. Integers and booleans keep their
// type; repeated fields become arrays.
func formToJSON(body []byte) ([]byte, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, errors.New("E082").Wrap(err)
	}
	obj := make(map[string]any, len(values))
	for key, vs := range values {
		if len(vs) == 1 {
			obj[key] = formValue(vs[0])
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = formValue(v)
		}
		obj[key] = list
	}
	return sonic.Marshal(obj)
}

func formValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

func acceptsJSON(req *http.Request) bool {
	for _, part := range strings.Split(req.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), "application/json") {
			return true
		}
	}
	return false
}

// redirectTarget sends form posts back where they came from.
func redirectTarget(req *http.Request) string {
	if ref := req.Referer(); ref != "" {
		return ref
	}
	return "/"
}
