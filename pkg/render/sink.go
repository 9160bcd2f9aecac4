package render

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// ChunkSink receives the chunks of a streamed render.
type ChunkSink interface {
	WriteChunk(chunk string) error
}

// ChunkSinkFunc adapts a function to a ChunkSink.
type ChunkSinkFunc func(chunk string) error

// WriteChunk implements ChunkSink.
func (f ChunkSinkFunc) WriteChunk(chunk string) error { return f(chunk) }

// WriterSink writes chunks to an io.Writer, flushing after each one when
// the writer implements http.Flusher.
type WriterSink struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	flusher, _ := w.(http.Flusher)
	return &WriterSink{w: w, flusher: flusher}
}

// CanFlush reports whether chunks reach the client as they are written.
func (s *WriterSink) CanFlush() bool {
	return s.flusher != nil
}

// WriteChunk implements ChunkSink.
func (s *WriterSink) WriteChunk(chunk string) error {
	if _, err := io.WriteString(s.w, chunk); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// BufferSink keeps every chunk in memory.
type BufferSink struct {
	mu     sync.Mutex
	chunks []string
}

// WriteChunk implements ChunkSink.
func (s *BufferSink) WriteChunk(chunk string) error {
	s.mu.Lock()
	s.chunks = append(s.chunks, chunk)
	s.mu.Unlock()
	return nil
}

// Chunks returns the chunks written so far.
func (s *BufferSink) Chunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// String returns the concatenation of all chunks.
func (s *BufferSink) String() string {
	return strings.Join(s.Chunks(), "")
}

// FlushableWriter wraps an io.Writer and counts flushes.
// It is useful for testing streaming without an http.ResponseWriter.
type FlushableWriter struct {
	io.Writer
	FlushCount int
}

// Flush implements http.Flusher.
func (w *FlushableWriter) Flush() {
	w.FlushCount++
}
