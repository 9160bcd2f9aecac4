package reactive

import "testing"

func TestBatchSingleNotification(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal(0)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = a.Get()
		_ = b.Get()
	})

	Batch(func() {
		a.Set(1)
		b.Set(2)
		a.Set(3)
	})

	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification after batch, got %d", listener.getDirtyCount())
	}
}

func TestBatchNested(t *testing.T) {
	a := NewSignal(0)
	listener := newTestListener()
	WithListener(listener, func() { _ = a.Get() })

	Batch(func() {
		Batch(func() {
			a.Set(1)
		})
		if listener.getDirtyCount() != 0 {
			t.Errorf("inner batch should not flush, got %d", listener.getDirtyCount())
		}
		a.Set(2)
	})

	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", listener.getDirtyCount())
	}
}

func TestUntracked(t *testing.T) {
	a := NewSignal(0)
	listener := newTestListener()

	WithListener(listener, func() {
		Untracked(func() {
			_ = a.Get()
		})
	})

	a.Set(1)
	if listener.getDirtyCount() != 0 {
		t.Errorf("untracked read should not subscribe, got %d", listener.getDirtyCount())
	}
}
