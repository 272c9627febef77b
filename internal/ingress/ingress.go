// Package ingress dispatches inbound HTTP requests by path and method
// to the WebSocket and xhttp transports, and runs the shared
// handle-client flow (header parse, dial, relay) against whichever
// DuplexClient comes out of a transport.
package ingress

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"edgevless/internal/config"
	"edgevless/internal/dialer"
	"edgevless/internal/relay"
	"edgevless/internal/transport"
	"edgevless/internal/transport/wstransport"
	"edgevless/internal/transport/xhttp"
	"edgevless/internal/vless"
)

// Server is the HTTP entry point: one instance per process, holding the
// loaded settings and a shared logger.
type Server struct {
	cfg    *config.Settings
	logger *zap.SugaredLogger
	connID atomic.Uint64
}

// New builds a Server from settings and a logger.
func New(cfg *config.Settings, logger *zap.SugaredLogger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// ServeHTTP implements http.Handler's routing table.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.HasUUID {
		s.serveHelp(w, r)
		return
	}

	path := r.URL.Path
	switch {
	case isUpgrade(r) && s.cfg.WSPath != "" && matchesPath(path, s.cfg.WSPath):
		s.handleWS(w, r)
	case r.Method == http.MethodPost && s.cfg.XHTTPPath != "" && matchesPath(path, s.cfg.XHTTPPath):
		s.handleXHTTP(w, r)
	case s.cfg.DoHQueryPath != "" && matchesPath(path, s.cfg.DoHQueryPath):
		s.handleDoH(w, r)
	case s.cfg.IPQueryPath != "" && r.Method == http.MethodGet && matchesPath(path, s.cfg.IPQueryPath):
		s.handleIPQuery(w, r)
	case r.Method == http.MethodGet && !isUpgrade(r):
		s.handleJSON(w, r)
	default:
		writeBadRequest(w)
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func matchesPath(path, prefix string) bool {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return strings.HasSuffix(path, prefix) || path == prefix
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	client, err := wstransport.Upgrade(w, r, s.cfg.BufferSizeKiB, s.logger)
	if err != nil {
		s.logger.Debugw("ws upgrade failed", "err", err)
		return
	}
	// The 101 response is already committed by Upgrade; handleClient's
	// outcome can only be logged, not turned into a different status.
	go s.handleClient(client)
}

func (s *Server) handleXHTTP(w http.ResponseWriter, r *http.Request) {
	client := xhttp.New(w, r, s.cfg.BufferSizeKiB, s.cfg.XPaddingRange)
	s.handleClient(client)
	client.Wait()
}

// handleClient runs the shared setup/relay flow against any transport's
// DuplexClient: parse the VLESS header, dial the destination, and relay.
func (s *Server) handleClient(client transport.DuplexClient) {
	id := s.connID.Add(1)
	logger := s.logger.With("conn_id", id)

	req, err := vless.ParseHeader(client.Readable(), s.cfg.UUID)
	if err != nil {
		logger.Errorw("header parse failed", "err", err)
		client.Close()
		return
	}

	relays := s.cfg.Proxy
	remote, err := dialer.ConnectRemote(context.Background(), req.Hostname, req.Port, relays)
	if err != nil {
		logger.Errorw("dial failed", "err", err, "hostname", req.Hostname, "port", req.Port)
		client.Close()
		return
	}

	relay.Run(client, remote, req, relay.Config{
		Scheduler:    relay.Scheduler(s.cfg.RelayScheduler),
		YieldSizeKiB: s.cfg.YieldSizeKiB,
		YieldDelayMS: s.cfg.YieldDelayMS,
		Logger:       logger,
	})
}

// handleDoH, handleIPQuery, and handleJSON are the proxy's peripheral
// collaborators: routing is wired end-to-end, but their internal logic
// (DNS-over-HTTPS forwarding, client-IP lookup, the JSON config-template
// generator) is pure formatting left to the ingress's caller to flesh
// out per deployment.
func (s *Server) handleDoH(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "doh forwarding not implemented", http.StatusNotImplemented)
}

func (s *Server) handleIPQuery(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, host)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// serveHelp handles the no-UUID-configured case: proxying is disabled
// and the server instead returns a plaintext help message carrying a
// freshly generated example UUID and random paths.
func (s *Server) serveHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "proxy disabled: no UUID configured\nexample UUID: %s\nexample WS_PATH: /%s/\nexample XHTTP_PATH: /%s/\n",
		randomUUID(), randomPathSegment(8), randomPathSegment(8))
}

// writeBadRequest sends the literal-by-design 404 "Bad Request" quirk:
// status 404 with the non-standard reason phrase "Bad Request". Go's
// net/http always derives the status line's reason phrase from the
// status code, so the only way to emit a custom one is to hijack the
// connection and write the status line by hand; over HTTP/2 (which has
// no textual status line at all) that's impossible, so this falls back
// to the conventional 404 response there.
func writeBadRequest(w http.ResponseWriter) {
	if hj, ok := w.(http.Hijacker); ok {
		conn, rw, err := hj.Hijack()
		if err == nil {
			fmt.Fprint(rw, "HTTP/1.1 404 Bad Request\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")
			rw.Flush()
			conn.Close()
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, "Bad Request")
}

func randomUUID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

const pathAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomPathSegment(n int) string {
	var b [8]byte
	_, _ = rand.Read(b[:n])
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = pathAlphabet[int(b[i])%len(pathAlphabet)]
	}
	return string(out)
}
