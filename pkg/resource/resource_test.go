package resource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/suspense/pkg/reactive"
	"github.com/vango-dev/suspense/pkg/suspense"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// gate is a fetcher that blocks until released.
type gate[T any] struct {
	mu      sync.Mutex
	release map[int]chan T
	calls   int
}

func newGate[T any]() *gate[T] {
	return &gate[T]{release: make(map[int]chan T)}
}

func (g *gate[T]) ch(k int) chan T {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.release[k]
	if !ok {
		c = make(chan T, 1)
		g.release[k] = c
	}
	return c
}

func (g *gate[T]) fetch(ctx context.Context, k int) (T, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	select {
	case v := <-g.ch(k):
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (g *gate[T]) resolve(k int, v T) {
	g.ch(k) <- v
}

func await[K comparable, T any](t *testing.T, r *Resource[K, T]) Result[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := r.Await(ctx)
	require.NoError(t, err)
	return res
}

func TestResourceResolves(t *testing.T) {
	r := NewUnkeyed(func(context.Context) (int, error) { return 42, nil })

	res := await(t, r)
	assert.True(t, res.OK())
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, Resolved, r.State())
	assert.False(t, r.Loading())
	assert.Equal(t, 42, r.Get())
}

func TestResourceReadNeverBlocks(t *testing.T) {
	g := newGate[int]()
	r := New(func() int { return 1 }, g.fetch)
	defer r.Dispose()

	res, ok := r.Read()
	assert.False(t, ok)
	assert.Zero(t, res.Value)
	assert.Equal(t, Pending, r.State())

	g.resolve(1, 7)
	assert.Equal(t, 7, await(t, r).Value)
}

func TestResourceErrorResolves(t *testing.T) {
	boom := errors.New("boom")
	sc := suspense.New()
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	suspense.ProvideOn(owner, sc)

	var r *Resource[struct{}, int]
	reactive.WithOwner(owner, func() {
		r = NewUnkeyed(func(context.Context) (int, error) { return 0, boom })
	})

	res := await(t, r)
	assert.ErrorIs(t, res.Err, boom)
	assert.ErrorIs(t, r.Error(), boom)
	assert.Zero(t, r.Get())

	require.Eventually(t, sc.Ready, time.Second, time.Millisecond)
}

func TestResourceRegistersOnCreate(t *testing.T) {
	g := newGate[string]()
	sc := suspense.New()
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	suspense.ProvideOn(owner, sc)

	var r *Resource[int, string]
	reactive.WithOwner(owner, func() {
		r = New(func() int { return 1 }, g.fetch)
		_, _ = r.Read()
		_, _ = r.Read()
	})

	assert.Equal(t, 1, sc.PendingResources(), "reads must not register twice")

	g.resolve(1, "done")
	await(t, r)
	require.Eventually(t, sc.Ready, time.Second, time.Millisecond)
}

func TestResourceRegistersOnRead(t *testing.T) {
	g := newGate[string]()
	r := New(func() int { return 1 }, g.fetch)
	defer r.Dispose()

	sc := suspense.New()
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	suspense.ProvideOn(owner, sc)

	reactive.WithOwner(owner, func() {
		_, _ = r.Read()
	})
	assert.Equal(t, 1, sc.PendingResources())

	g.resolve(1, "x")
	require.Eventually(t, sc.Ready, time.Second, time.Millisecond)
}

func TestResourceKeyChangeRefetches(t *testing.T) {
	g := newGate[string]()
	id := reactive.NewSignal(1)
	sc := suspense.New()
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	suspense.ProvideOn(owner, sc)

	var r *Resource[int, string]
	reactive.WithOwner(owner, func() {
		r = New(func() int { return id.Get() }, g.fetch)
	})

	g.resolve(1, "one")
	assert.Equal(t, "one", await(t, r).Value)
	require.Eventually(t, sc.Ready, time.Second, time.Millisecond)

	id.Set(2)
	owner.RunPendingEffects()

	assert.Equal(t, Pending, r.State())
	assert.Equal(t, 1, sc.PendingResources(), "key change must increment the context again")

	g.resolve(2, "two")
	assert.Equal(t, "two", await(t, r).Value)
	require.Eventually(t, sc.Ready, time.Second, time.Millisecond)
}

func TestResourceDropsStaleResults(t *testing.T) {
	g := newGate[string]()
	id := reactive.NewSignal(1)
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()

	var r *Resource[int, string]
	reactive.WithOwner(owner, func() {
		r = New(func() int { return id.Get() }, g.fetch)
	})

	id.Set(2)
	owner.RunPendingEffects()

	g.resolve(2, "fresh")
	assert.Equal(t, "fresh", await(t, r).Value)

	g.resolve(1, "stale")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "fresh", r.Get())
}

func TestResourceDisposeBeforeResolve(t *testing.T) {
	g := newGate[int]()
	sc := suspense.New()
	owner := reactive.NewOwner(nil)
	suspense.ProvideOn(owner, sc)

	var r *Resource[int, int]
	reactive.WithOwner(owner, func() {
		r = New(func() int { return 1 }, g.fetch)
	})
	assert.Equal(t, 1, sc.PendingResources())

	sc.Dispose()
	owner.Dispose()
	assert.True(t, r.IsDisposed())

	assert.NotPanics(t, func() {
		g.resolve(1, 42)
		time.Sleep(20 * time.Millisecond)
	})

	_, err := r.Await(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestResourceDisposeReleasesLiveContext(t *testing.T) {
	g := newGate[int]()
	sc := suspense.New()
	r := New(func() int { return 1 }, g.fetch)
	r.Register(sc)
	require.Equal(t, 1, sc.PendingResources())

	r.Dispose()
	assert.True(t, sc.Ready())
}

func TestResourceRegisterIgnoresDeadContexts(t *testing.T) {
	g := newGate[int]()
	id := reactive.NewSignal(1)
	live, dead := suspense.New(), suspense.New()

	owner := reactive.NewOwner(nil)
	defer owner.Dispose()

	var r *Resource[int, int]
	reactive.WithOwner(owner, func() {
		r = New(func() int { return id.Get() }, g.fetch)
	})
	r.Register(live)
	r.Register(dead)

	g.resolve(1, 1)
	await(t, r)
	dead.Dispose()

	id.Set(2)
	owner.RunPendingEffects()
	assert.Equal(t, 1, live.PendingResources())
	assert.Equal(t, 0, dead.PendingResources())

	g.resolve(2, 2)
	require.Eventually(t, live.Ready, time.Second, time.Millisecond)
}

func TestResourceRetry(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	r := NewUnkeyed(func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, WithRetry(2, time.Millisecond))

	assert.Equal(t, "ok", await(t, r).Value)
	mu.Lock()
	assert.Equal(t, 3, attempts)
	mu.Unlock()
}

func TestResourceFetchPanicBecomesError(t *testing.T) {
	r := NewUnkeyed(func(context.Context) (int, error) { panic("kaboom") }, WithName("panicky"))

	res := await(t, r)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "panicky")
}

func TestResourceMutate(t *testing.T) {
	r := NewUnkeyed(func(context.Context) (int, error) { return 1, nil })
	await(t, r)

	r.Mutate(func(n int) int { return n + 10 })
	assert.Equal(t, 11, r.Get())
	assert.Equal(t, Resolved, r.State())
}

func TestResourceRefetch(t *testing.T) {
	var mu sync.Mutex
	n := 0
	r := NewUnkeyed(func(context.Context) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return n, nil
	})
	assert.Equal(t, 1, await(t, r).Value)

	r.Refetch()
	assert.Equal(t, 2, await(t, r).Value)
}

func TestResourceCallbacks(t *testing.T) {
	done := make(chan string, 1)
	g := newGate[string]()
	r := New(func() int { return 1 }, g.fetch).OnSuccess(func(v string) { done <- v })
	defer r.Dispose()

	g.resolve(1, "hi")
	select {
	case v := <-done:
		assert.Equal(t, "hi", v)
	case <-time.After(time.Second):
		t.Fatal("OnSuccess not called")
	}
}

type queueDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func (d *queueDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

func (d *queueDispatcher) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *queueDispatcher) drain() {
	d.mu.Lock()
	q := d.queue
	d.queue = nil
	d.mu.Unlock()
	for _, fn := range q {
		fn()
	}
}

func TestResourceDispatcher(t *testing.T) {
	d := &queueDispatcher{}
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	ProvideDispatcher(owner, d)

	var r *Resource[struct{}, int]
	reactive.WithOwner(owner, func() {
		r = NewUnkeyed(func(context.Context) (int, error) { return 5, nil })
	})

	require.Eventually(t, func() bool { return d.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Pending, r.State(), "completion waits for the dispatcher")

	d.drain()
	assert.Equal(t, 5, r.Get())
}

func TestResourceHookSlotIdentity(t *testing.T) {
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()

	calls := 0
	var first, second *Resource[struct{}, int]
	render := func(dst **Resource[struct{}, int]) {
		require.NoError(t, owner.Render(func() {
			*dst = NewUnkeyed(func(context.Context) (int, error) {
				calls++
				return calls, nil
			})
		}))
	}
	render(&first)
	await(t, first)
	render(&second)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestMatch(t *testing.T) {
	g := newGate[int]()
	r := New(func() int { return 1 }, g.fetch)
	defer r.Dispose()

	handlers := []Handler[int]{
		OnPending[int](func() *vdom.VNode { return vdom.Text("loading") }),
		OnError[int](func(err error) *vdom.VNode { return vdom.Text("error: " + err.Error()) }),
		OnReady(func(n int) *vdom.VNode { return vdom.Textf("value %d", n) }),
	}

	assert.Equal(t, "loading", r.Match(handlers...).Text)

	g.resolve(1, 42)
	await(t, r)
	assert.Equal(t, "value 42", r.Match(handlers...).Text)

	failing := NewUnkeyed(func(context.Context) (int, error) { return 0, errors.New("nope") })
	await(t, failing)
	assert.Equal(t, "error: nope", failing.Match(handlers...).Text)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "State(9)", State(9).String())
}
