package relay

import (
	"io"

	"edgevless/internal/signal"
)

// pumpPipe writes first (if any), then forwards src into dst using
// io.Copy, Go's native backpressure-aware piping. If sig is non-nil, an
// abort races the copy and wins with ErrAborted.
func pumpPipe(src io.Reader, dst io.Writer, first []byte, sig *signal.Token) error {
	if len(first) > 0 {
		if _, err := dst.Write(first); err != nil {
			return err
		}
	}

	if sig == nil {
		_, err := io.Copy(dst, src)
		return err
	}

	copyDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(dst, src)
		copyDone <- err
	}()

	select {
	case err := <-copyDone:
		if err != nil && sig.Fired() {
			// sig.Fire() and the queue's CloseWithError/Close race against
			// each other; Broadcast can wake this copy before Fire runs, so
			// copyDone can win the select even though the failure is really
			// the abort. Treat any failure observed alongside a fired signal
			// as the abort, not a real transport error.
			return ErrAborted
		}
		return err
	case <-sig.Done():
		return ErrAborted
	}
}
