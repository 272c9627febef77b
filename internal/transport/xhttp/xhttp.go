// Package xhttp adapts a streaming HTTP request/response pair into a
// transport.DuplexClient: the request body is the uplink, and a bounded
// internal queue (the same primitive backing the WebSocket adapter's
// readable side) bridges the downlink into the response body.
package xhttp

import (
	"errors"
	"io"
	"net/http"

	"edgevless/internal/buf"
	"edgevless/internal/padding"
	"edgevless/internal/signal"
)

// ErrSetupFailed marks a queue closed before any response bytes were
// produced, because header parsing or dialing failed. New's response
// pump turns this into a 404 instead of a 200.
var ErrSetupFailed = errors.New("xhttp: setup failed")

const responseChunkSize = 32 * 1024

// Client is an xhttp-backed DuplexClient. No abort token is produced;
// cancellation is observed through body-stream errors instead.
type Client struct {
	body  io.ReadCloser
	queue *buf.BoundedQueue
	done  chan struct{}
}

// New wraps r's body as the readable half and begins draining the
// writable half into w as soon as bytes are available. It does not
// commit to a response status immediately: the 200 and fixed header set
// are only sent once the first byte is queued, so a setup failure (no
// bytes ever queued) can still produce a 404. Callers must invoke Wait
// before returning from the HTTP handler so the streamed response is
// fully flushed.
func New(w http.ResponseWriter, r *http.Request, bufferSizeKiB int, xpaddingRange string) *Client {
	c := &Client{
		body:  r.Body,
		queue: buf.NewBoundedQueue(bufferSizeKiB * 1024),
		done:  make(chan struct{}),
	}
	go c.drain(w, xpaddingRange)
	return c
}

func (c *Client) drain(w http.ResponseWriter, xpaddingRange string) {
	defer close(c.done)
	flusher, _ := w.(http.Flusher)
	headerSent := false
	scratch := make([]byte, responseChunkSize)
	for {
		n, err := c.queue.Read(scratch)
		if n > 0 {
			if !headerSent {
				sendHeaders(w, xpaddingRange)
				headerSent = true
			}
			if _, werr := w.Write(scratch[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if !headerSent {
				if errors.Is(err, ErrSetupFailed) {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte("Bad Request"))
				} else {
					sendHeaders(w, xpaddingRange)
				}
			}
			return
		}
	}
}

func sendHeaders(w http.ResponseWriter, xpaddingRange string) {
	h := w.Header()
	h.Set("X-Accel-Buffering", "no")
	h.Set("Cache-Control", "no-store")
	h.Set("Connection", "Keep-Alive")
	h.Set("Content-Type", "application/grpc")
	h.Set("User-Agent", "Go-http-client/2.0")
	if pad := padding.Random(xpaddingRange); pad != "" {
		h.Set("X-Padding", pad)
	}
	w.WriteHeader(http.StatusOK)
}

// Readable returns the request body.
func (c *Client) Readable() io.Reader { return c.body }

// Writable returns the bounded queue feeding the response body.
func (c *Client) Writable() io.WriteCloser { return c.queue }

// Signal returns nil: xhttp has no abort token of its own; cancellation
// is observed through body-stream errors instead.
func (c *Client) Signal() *signal.Token { return nil }

// Close is the forceful teardown: it marks the queue failed (turning an
// as-yet-unsent response into a 404) and closes the request body.
func (c *Client) Close() error {
	c.queue.CloseWithError(ErrSetupFailed)
	return c.body.Close()
}

// Wait blocks until the response has been fully drained to the client,
// so the HTTP handler can safely return afterward.
func (c *Client) Wait() {
	<-c.done
}
