package relay

import (
	"io"
	"runtime"
	"time"

	"edgevless/internal/signal"
)

// pumpYield writes first (if any), then copies in bounded slices of
// sliceSize bytes, sleeping delay between slices and checking sig
// between each read. On a cooperative single-threaded runtime this
// yielding exists so a long transfer in one direction can't starve the
// other; on Go's preemptive scheduler it instead serves traffic shaping
// and fairness, which is why it remains a configurable, strictly slower
// alternative to the pipe strategy rather than the default.
func pumpYield(src io.Reader, dst io.Writer, first []byte, sig *signal.Token, sliceSize int, delay time.Duration) error {
	if len(first) > 0 {
		if _, err := dst.Write(first); err != nil {
			return err
		}
	}

	scratch := make([]byte, sliceSize)
	for {
		if sig != nil && sig.Fired() {
			return ErrAborted
		}

		n, err := src.Read(scratch)
		if n > 0 {
			if _, werr := dst.Write(scratch[:n]); werr != nil {
				if sig != nil && sig.Fired() {
					return ErrAborted
				}
				return werr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if sig != nil && sig.Fired() {
				return ErrAborted
			}
			return err
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-sigDone(sig):
				timer.Stop()
				return ErrAborted
			}
		} else {
			runtime.Gosched()
		}
	}
}

// sigDone returns sig's done channel, or nil (which blocks forever in a
// select) when sig is nil.
func sigDone(sig *signal.Token) <-chan struct{} {
	if sig == nil {
		return nil
	}
	return sig.Done()
}
