package relay

import (
	"net"
	"time"

	"go.uber.org/zap"

	"edgevless/internal/signal"
)

const (
	abortPollInterval = 3 * time.Second
	abortGracePeriod  = 3 * time.Second
)

// watchAbort polls sig every abortPollInterval; once fired, it waits a
// further abortGracePeriod for in-flight bytes to drain, then force-
// closes remote. It is best-effort: pumps observing the abort will
// typically unwind on their own, and this watcher only exists to
// reclaim a remote socket in the pathological case where a pump is
// stuck reading from a half-open remote. stop ends the watcher early
// once the relay has settled on its own.
func watchAbort(sig *signal.Token, remote net.Conn, stop <-chan struct{}, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(abortPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !sig.Fired() {
				continue
			}
			select {
			case <-stop:
				return
			case <-time.After(abortGracePeriod):
			}
			if err := remote.Close(); err != nil && logger != nil {
				logger.Warnw("abort watcher: failed to close remote", "err", err)
			}
			return
		}
	}
}
