package demo

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/vango-dev/suspense/pkg/live"
	"github.com/vango-dev/suspense/pkg/render"
	"github.com/vango-dev/suspense/pkg/serverfn"
)

// ErrForecastUnavailable is what the failing resource on the home page
// resolves with.
var ErrForecastUnavailable = stderrors.New("forecast service unavailable")

// Options configures the demo.
type Options struct {
	// Latency delays every resource fetch.
	Latency time.Duration

	// InitialCount is the starting server count.
	InitialCount int

	Logger *slog.Logger

	// Live configures the count hub.
	Live []live.Option
}

// App holds the demo's server state.
type App struct {
	count    *live.Hub[int]
	latency  time.Duration
	logger   *slog.Logger
	registry *serverfn.Registry
}

// AdjustArgs is the payload of adjust_server_count.
type AdjustArgs struct {
	Delta int `json:"delta"`

	// Msg is logged with the change.
	Msg string `json:"msg,omitempty"`
}

// New creates the demo application.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	a := &App{
		count:   live.NewHub(opts.InitialCount, opts.Live...),
		latency: opts.Latency,
		logger:  opts.Logger,
	}
	a.registry = serverfn.MustRegistry(
		serverfn.JSON("get_server_count", a.GetServerCount),
		serverfn.JSON("adjust_server_count", a.AdjustServerCount),
		serverfn.JSON("clear_server_count", a.ClearServerCount),
	)
	return a
}

// Count is the hub carrying the server count.
func (a *App) Count() *live.Hub[int] {
	return a.count
}

// Registry returns the server functions.
func (a *App) Registry() *serverfn.Registry {
	return a.registry
}

// GetServerCount returns the count after the configured latency.
func (a *App) GetServerCount(ctx context.Context, _ struct{}) (int, error) {
	if err := a.wait(ctx); err != nil {
		return 0, err
	}
	return a.count.Current(), nil
}

// AdjustServerCount adds args.Delta to the count and broadcasts it.
func (a *App) AdjustServerCount(_ context.Context, args AdjustArgs) (int, error) {
	n := a.count.Update(func(n int) int { return n + args.Delta })
	a.logger.Info("server count adjusted", "delta", args.Delta, "count", n, "msg", args.Msg)
	return n, nil
}

// ClearServerCount resets the count to zero and broadcasts it.
func (a *App) ClearServerCount(_ context.Context, _ struct{}) (int, error) {
	a.count.Publish(0)
	a.logger.Info("server count cleared")
	return 0, nil
}

// Forecast always fails after the configured latency.
func (a *App) Forecast(ctx context.Context) (string, error) {
	if err := a.wait(ctx); err != nil {
		return "", err
	}
	return "", ErrForecastUnavailable
}

// Pages returns the routes the demo serves, for the server and exporter.
func (a *App) Pages() map[string]render.PageData {
	return map[string]render.PageData{
		"/": {
			Title:  "Suspense",
			Body:   a.Home,
			Styles: []string{styles},
		},
		"/counter": {
			Title:  "Isomorphic Counter",
			Body:   a.Counter,
			Styles: []string{styles},
		},
	}
}

func (a *App) wait(ctx context.Context) error {
	if a.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(a.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const styles = `body{font-family:system-ui,sans-serif;max-width:40rem;margin:2rem auto}
.card{border:1px solid #ddd;border-radius:6px;padding:1rem;margin:1rem 0}
.loading{color:#888}
.error{color:#b00}
form{display:inline}`
