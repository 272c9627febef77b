// Package buf provides the byte-buffer utilities the VLESS header codec
// and the transport adapters are built on: a widening accumulator for
// read_at_least-style framing reads, and a bounded byte queue used as the
// internal backpressure buffer for both transport adapters.
package buf

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// ErrShortRead is returned by ReadAtLeast when the source is exhausted
// before n bytes have arrived.
var ErrShortRead = errors.New("short_read")

const readChunkSize = 4096

// Concat returns a single contiguous buffer holding chunks in order.
// Concat() returns an empty, non-nil buffer; Concat(x) returns a copy of x.
func Concat(chunks ...[]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Accumulator pulls chunks from an io.Reader into a growing buffer,
// remembering what has already been read across successive widening
// calls to Fill. This is how the VLESS header codec performs its
// multi-pass read (18 bytes, then through the address-type byte, then
// through the full header) without discarding bytes already buffered.
type Accumulator struct {
	r   io.Reader
	buf []byte
}

// NewAccumulator wraps r.
func NewAccumulator(r io.Reader) *Accumulator {
	return &Accumulator{r: r}
}

// Fill reads until the accumulated buffer holds at least n bytes, and
// returns the full accumulated buffer (which may hold more than n bytes
// if the underlying reader handed back extra in its final chunk). Fails
// with ErrShortRead if the reader ends before n bytes have arrived.
func (a *Accumulator) Fill(n int) ([]byte, error) {
	chunk := make([]byte, readChunkSize)
	for len(a.buf) < n {
		m, err := a.r.Read(chunk)
		if m > 0 {
			a.buf = append(a.buf, chunk[:m]...)
		}
		if err != nil {
			if len(a.buf) < n {
				return nil, ErrShortRead
			}
			break
		}
	}
	return a.buf, nil
}

// ReadAtLeast is the standalone form of Fill: read from r until at least
// n bytes have accumulated, or fail with ErrShortRead.
func ReadAtLeast(r io.Reader, n int) ([]byte, error) {
	return NewAccumulator(r).Fill(n)
}

// BoundedQueue is a blocking byte queue with an optional high-water mark.
// Writers past the mark block until the reader drains enough to make
// room; readers block until data is available or the queue is closed.
// A maxBytes of 0 disables bounding. It is the internal pass-through
// buffer behind both the WebSocket readable side and the xhttp
// writable/response-body bridge.
type BoundedQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   bytes.Buffer
	max    int
	closed bool
	cerr   error
}

// NewBoundedQueue creates a queue with the given byte high-water mark.
func NewBoundedQueue(maxBytes int) *BoundedQueue {
	q := &BoundedQueue{max: maxBytes}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Write enqueues p, blocking while the queue is over its high-water mark.
func (q *BoundedQueue) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	for q.max > 0 && q.data.Len() > 0 && q.data.Len()+len(p) > q.max {
		q.cond.Wait()
		if q.closed {
			return 0, io.ErrClosedPipe
		}
	}
	n, _ := q.data.Write(p)
	q.cond.Broadcast()
	return n, nil
}

// Read dequeues into p, blocking until data is available or the queue
// closes. Once drained and closed, Read returns the close error (io.EOF
// for a clean close).
func (q *BoundedQueue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.data.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.data.Len() == 0 {
		if q.cerr != nil {
			return 0, q.cerr
		}
		return 0, io.EOF
	}
	n, _ := q.data.Read(p)
	q.cond.Broadcast()
	return n, nil
}

// CloseWithError closes the queue; pending and future Reads drain
// remaining data then report err (io.EOF if err is nil). Idempotent.
func (q *BoundedQueue) CloseWithError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cerr = err
	q.cond.Broadcast()
}

// Close is CloseWithError(nil), satisfying io.Closer.
func (q *BoundedQueue) Close() error {
	q.CloseWithError(nil)
	return nil
}
