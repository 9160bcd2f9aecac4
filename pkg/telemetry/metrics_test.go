package telemetry

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/render"
	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// delayed renders one boundary whose resource resolves after release is
// closed.
func delayed(release <-chan struct{}) render.View {
	return func() *vdom.VNode {
		return vdom.Div(vdom.Suspense(
			func() *vdom.VNode { return vdom.P("Loading...") },
			func() *vdom.VNode {
				r := resource.NewUnkeyed(func(ctx context.Context) (string, error) {
					select {
					case <-release:
						return "done", nil
					case <-ctx.Done():
						return "", ctx.Err()
					}
				})
				if res, ok := r.Read(); ok {
					return vdom.P(res.Value)
				}
				return vdom.P("...")
			},
		))
	}
}

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(WithRegistry(reg), WithNamespace("test")), reg
}

func TestMetricsCountsResolvedPass(t *testing.T) {
	m, _ := newTestMetrics(t)
	r := render.NewRenderer(render.RendererConfig{Observer: m})

	release := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.RenderResolved(ctx, delayed(release))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("ssr", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.boundariesTotal.WithLabelValues("ssr", OutcomePending)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.boundariesTotal.WithLabelValues("ssr", OutcomeReady)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.boundariesTotal.WithLabelValues("ssr", OutcomeResolved)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.boundaryWait))
	assert.Equal(t, 1, testutil.CollectAndCount(m.passDuration))
}

func TestMetricsLabelsFailedPassWithCode(t *testing.T) {
	m, _ := newTestMetrics(t)
	r := render.NewRenderer(render.RendererConfig{Observer: m})

	_, err := r.RenderToString(func() *vdom.VNode { panic("boom") })
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("ssr", "E001")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("ssr", "ok")))
}

func TestMetricsCountsChunks(t *testing.T) {
	m, _ := newTestMetrics(t)
	r := render.NewRenderer(render.RendererConfig{Observer: m})

	release := make(chan struct{})
	close(release)
	sink := &render.BufferSink{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.StreamOutOfOrder(ctx, delayed(release), sink))

	var size int
	for _, c := range sink.Chunks() {
		size += len(c)
	}
	assert.Equal(t, float64(len(sink.Chunks())), testutil.ToFloat64(m.chunksTotal.WithLabelValues("ooo")))
	assert.Equal(t, float64(size), testutil.ToFloat64(m.chunkBytes.WithLabelValues("ooo")))
}

func TestMetricsServerFnAndSubscribers(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordServerFn("adjust_server_count", nil)
	m.RecordServerFn("adjust_server_count", stderrors.New("nope"))
	m.RecordServerFn("missing", errors.New("E080"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.serverFnCalls.WithLabelValues("adjust_server_count", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.serverFnCalls.WithLabelValues("adjust_server_count", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.serverFnCalls.WithLabelValues("missing", "E080")))

	m.SubscriberAdded()
	m.SubscriberAdded()
	m.SubscriberRemoved()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.liveSubscribers))
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Post("/api/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, name := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/"+name, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/{name}", "POST", "418")))
}

func TestMetricsExposition(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.SubscriberAdded()

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP test_live_subscribers Number of connected live-channel subscribers
# TYPE test_live_subscribers gauge
test_live_subscribers 1
`), "test_live_subscribers")
	require.NoError(t, err)
}

func TestNewMetricsDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))
	assert.Panics(t, func() { NewMetrics(WithRegistry(reg)) })
}
