// Package wstransport adapts a server-side WebSocket connection into a
// transport.DuplexClient.
package wstransport

import (
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"edgevless/internal/buf"
	"edgevless/internal/signal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is a WebSocket-backed DuplexClient.
type Client struct {
	conn   *websocket.Conn
	queue  *buf.BoundedQueue
	sig    *signal.Token
	logger *zap.SugaredLogger

	closeOnce sync.Once
	mu        sync.Mutex
	reading   bool
	writing   bool
}

// Upgrade performs the HTTP 101 handshake and returns the adapted client.
// bufferSizeKiB is the high-water mark for the internal readable queue;
// 0 means unbounded.
func Upgrade(w http.ResponseWriter, r *http.Request, bufferSizeKiB int, logger *zap.SugaredLogger) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   conn,
		queue:  buf.NewBoundedQueue(bufferSizeKiB * 1024),
		sig:    signal.New(),
		logger: logger,
	}
	go c.readLoop()
	return c, nil
}

// readLoop feeds every inbound message into the bounded queue. A clean
// client-initiated close ends the queue with io.EOF, the same as any
// other expected end of stream; anything else ends it with the
// triggering error. Either way the abort signal fires, since in both
// cases the client side of the relay is done.
func (c *Client) readLoop() {
	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			if isExpectedClose(err) {
				c.queue.Close()
			} else {
				c.queue.CloseWithError(err)
			}
			c.sig.Fire()
			return
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}
		if _, err := c.queue.Write(msg); err != nil {
			c.queue.CloseWithError(err)
			c.sig.Fire()
			return
		}
	}
}

// isExpectedClose reports whether err is a normal, client-initiated WS
// close (a close frame carrying CloseNormalClosure or CloseGoingAway),
// as opposed to a protocol error or an abrupt disconnect.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// Readable returns the queue feeding from the WebSocket connection.
func (c *Client) Readable() io.Reader { return c.queue }

// Writable returns a sink that sends each chunk as a binary WS message.
// A send failure fires the abort signal but is not surfaced to the
// caller; the relay observes the failure via the signal instead.
func (c *Client) Writable() io.WriteCloser { return clientWritable{c} }

// Signal returns the client's abort token.
func (c *Client) Signal() *signal.Token { return c.sig }

// ReadingDone is invoked by the relay once the client-to-remote pump
// settles. Combined with Writable().Close(), it drives the two-flag
// close: the underlying connection only tears down once both halves
// have finished, so an in-flight send isn't lost because the reader
// ended first.
func (c *Client) ReadingDone() {
	c.mu.Lock()
	c.reading = true
	done := c.writing
	c.mu.Unlock()
	if done {
		c.teardown()
	}
}

func (c *Client) finishWriting() {
	c.mu.Lock()
	c.writing = true
	done := c.reading
	c.mu.Unlock()
	if done {
		c.teardown()
	}
}

func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil && c.logger != nil {
			c.logger.Debugw("ws close", "err", err)
		}
	})
}

// Close is the forceful, idempotent teardown used when setup (header
// parse or dial) fails; it bypasses the two-flag bookkeeping.
func (c *Client) Close() error {
	c.mu.Lock()
	c.reading = true
	c.writing = true
	c.mu.Unlock()
	c.teardown()
	return nil
}

type clientWritable struct{ c *Client }

func (w clientWritable) Write(p []byte) (int, error) {
	if err := w.c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		w.c.sig.Fire()
		if w.c.logger != nil {
			w.c.logger.Debugw("ws send failed", "err", err)
		}
		return len(p), nil
	}
	return len(p), nil
}

func (w clientWritable) Close() error {
	w.c.finishWriting()
	return nil
}
