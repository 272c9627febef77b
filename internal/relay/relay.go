// Package relay implements the bidirectional byte relay between a
// transport.DuplexClient and an outbound remote connection: two
// interchangeable pump strategies (pipe, yield), the orchestrator
// wiring them together, and the abort watcher that reclaims a remote
// socket if a pump gets stuck reading from it.
package relay

import (
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"edgevless/internal/signal"
	"edgevless/internal/transport"
	"edgevless/internal/vless"
)

// ErrAborted marks pump termination caused by the abort signal firing;
// it is expected teardown and is suppressed from error logs.
var ErrAborted = errors.New("aborted")

// Scheduler selects a pump strategy. Unknown values fall back to Pipe.
type Scheduler string

const (
	SchedulerPipe  Scheduler = "pipe"
	SchedulerYield Scheduler = "yield"
)

// Config carries the scheduler selection and yield-strategy tuning.
type Config struct {
	Scheduler    Scheduler
	YieldSizeKiB int
	YieldDelayMS int
	Logger       *zap.SugaredLogger
}

func (c Config) yieldSliceBytes() int {
	if c.YieldSizeKiB <= 0 {
		return 2048 * 1024
	}
	return c.YieldSizeKiB * 1024
}

func (c Config) yieldDelay() time.Duration {
	return time.Duration(c.YieldDelayMS) * time.Millisecond
}

// Run orchestrates the two pumps for one proxied connection: the
// uploader (client -> remote, prefixed with vless.Data) and the
// downloader (remote -> client, prefixed with vless.Resp). It starts
// the abort watcher if the client has a signal, waits for both pumps to
// settle, and logs non-aborted errors with a direction prefix.
func Run(client transport.DuplexClient, remote net.Conn, req *vless.Request, cfg Config) {
	sig := client.Signal()

	stopWatch := make(chan struct{})
	if sig != nil {
		go watchAbort(sig, remote, stopWatch, cfg.Logger)
	}

	uploadDone := make(chan error, 1)
	go func() {
		err := pump(cfg, client.Readable(), remote, req.Data, sig)
		closeWriteSide(remote)
		if n, ok := client.(transport.ReadingDoneNotifier); ok {
			n.ReadingDone()
		}
		uploadDone <- err
	}()

	downloadErr := pump(cfg, remote, client.Writable(), req.Resp, sig)
	closeWriteSide(client.Writable())

	uploadErr := <-uploadDone
	close(stopWatch)

	logPumpErr(cfg.Logger, "download", downloadErr)
	logPumpErr(cfg.Logger, "upload", uploadErr)
	if cfg.Logger != nil {
		cfg.Logger.Debugw("relay finished", "hostname", req.Hostname, "port", req.Port)
	}
}

func logPumpErr(logger *zap.SugaredLogger, direction string, err error) {
	if err == nil || errors.Is(err, ErrAborted) || logger == nil {
		return
	}
	logger.Errorw(direction, "err", err)
}

// pump dispatches to the configured strategy.
func pump(cfg Config, src io.Reader, dst io.Writer, first []byte, sig *signal.Token) error {
	if cfg.Scheduler == SchedulerYield {
		return pumpYield(src, dst, first, sig, cfg.yieldSliceBytes(), cfg.yieldDelay())
	}
	return pumpPipe(src, dst, first, sig)
}

// closeWriteSide half-closes dst if it supports CloseWrite (as a
// *net.TCPConn does), otherwise fully closes it. Called unconditionally
// at the end of both pumps, mirroring a length-prefixed TCP relay's
// "signal EOF downstream when my side is done" idiom.
func closeWriteSide(dst io.Writer) {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := dst.(writeCloser); ok {
		_ = wc.CloseWrite()
		return
	}
	if c, ok := dst.(io.Closer); ok {
		_ = c.Close()
	}
}
