package render

import (
	"context"
	"fmt"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/hydration"
)

// resolveChunk wraps a resolved boundary's content for out-of-order
// delivery.
func resolveChunk(key hydration.Key, content string) string {
	k := key.String()
	return fmt.Sprintf(`<template data-suspense="%s">%s</template><script>__suspense.resolve("%s")</script>`, k, content, k)
}

// StreamOutOfOrder writes view to sink. The first chunk is the document
// with a fallback for every pending boundary; then each boundary is sent as
// one chunk when its resources resolve, in resolution order. Boundaries
// found inside a resolved boundary are streamed the same way.
//
// When ctx ends before every boundary resolved the unresolved keys are
// returned in an E002 error.
func (r *Renderer) StreamOutOfOrder(ctx context.Context, view View, sink ChunkSink) (err error) {
	ctx, end := r.observer.StartPass(ctx, ModeOutOfOrder)
	defer func() { end(err) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := r.newDocument(ctx, ModeOutOfOrder, view)
	defer d.dispose()

	shell, pending, err := d.render()
	if err != nil {
		return err
	}
	if err := d.write(sink, shell); err != nil {
		return err
	}

	resolved := make(chan *boundary)
	waiting := make(map[hydration.Key]*boundary)
	wait := func(b *boundary) {
		waiting[b.key] = b
		go func() {
			select {
			case <-b.sc.Done():
			case <-ctx.Done():
				return
			}
			select {
			case resolved <- b:
			case <-ctx.Done():
			}
		}()
	}
	for _, b := range pending {
		wait(b)
	}

	for len(waiting) > 0 {
		select {
		case <-ctx.Done():
			keys := make([]hydration.Key, 0, len(waiting))
			for k := range waiting {
				keys = append(keys, k)
			}
			return unresolved(keys, ctx.Err())

		case b := <-resolved:
			delete(waiting, b.key)
			if b.sc.IsDisposed() {
				continue
			}

			content, nested, ok, err := d.renderBoundary(b)
			if err != nil {
				return err
			}
			if !ok {
				wait(b)
				continue
			}
			if err := d.write(sink, resolveChunk(b.key, content)); err != nil {
				return err
			}
			for _, n := range nested {
				wait(n)
			}
		}
	}
	return nil
}

// StreamInOrder writes view to sink strictly in document order, blocking
// at each pending boundary until it resolves. The concatenated chunks equal
// the output of RenderResolved.
func (r *Renderer) StreamInOrder(ctx context.Context, view View, sink ChunkSink) (err error) {
	ctx, end := r.observer.StartPass(ctx, ModeInOrder)
	defer func() { end(err) }()

	d := r.newDocument(ctx, ModeInOrder, view)
	defer d.dispose()

	chunks, err := d.renderChunks()
	if err != nil {
		return err
	}
	return d.drain(ctx, sink, chunks)
}

func (d *document) renderChunks() ([]StreamChunk, error) {
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	p := d.newPass()
	if err := p.node(root, d.owner); err != nil {
		return nil, err
	}
	return p.chunks(), nil
}

// drain writes chunks in order, running producers as they are reached.
func (d *document) drain(ctx context.Context, sink ChunkSink, chunks []StreamChunk) error {
	for _, c := range chunks {
		if c.Async == nil {
			if err := d.write(sink, c.Sync); err != nil {
				return err
			}
			continue
		}
		more, err := c.Async(ctx)
		if err != nil {
			return err
		}
		if err := d.drain(ctx, sink, more); err != nil {
			return err
		}
	}
	return nil
}

func (d *document) write(sink ChunkSink, chunk string) error {
	if chunk == "" {
		return nil
	}
	if err := sink.WriteChunk(chunk); err != nil {
		return errors.New("E060").Wrap(err)
	}
	d.observer.Chunk(d.ctx, d.mode, len(chunk))
	return nil
}
