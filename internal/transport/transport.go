// Package transport defines the uniform duplex interface the relay
// engine consumes, regardless of whether a client arrived over
// WebSocket or xhttp.
package transport

import (
	"io"

	"edgevless/internal/signal"
)

// DuplexClient is the shape the relay engine needs from an inbound
// client: a readable half, a writable half whose Close denotes
// end-of-stream to the client, an abort signal (nil if the transport
// has no such concept), and a forceful, idempotent teardown.
type DuplexClient interface {
	Readable() io.Reader
	Writable() io.WriteCloser
	Signal() *signal.Token
	Close() error
}

// ReadingDoneNotifier is an optional hook a DuplexClient may implement.
// When present, the relay calls ReadingDone after the client-to-remote
// pump settles (success or failure).
type ReadingDoneNotifier interface {
	ReadingDone()
}
