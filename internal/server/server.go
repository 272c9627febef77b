// Package server holds the edge node's process lifecycle: loading
// settings into a running HTTP listener.
package server

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"edgevless/internal/config"
	"edgevless/internal/ingress"
)

// AppServer owns the configuration and the listening HTTP server.
type AppServer struct {
	cfg    *config.Settings
	logger *zap.SugaredLogger
}

// New creates an AppServer from loaded settings and a logger.
func New(cfg *config.Settings, logger *zap.SugaredLogger) *AppServer {
	return &AppServer{cfg: cfg, logger: logger}
}

// Run starts the HTTP server and blocks until it exits.
func (s *AppServer) Run() error {
	handler := ingress.New(s.cfg, s.logger)

	logLocalIPs(s.logger, s.cfg.ListenAddr)
	s.logger.Infow("edge node listening", "addr", s.cfg.ListenAddr)

	httpServer := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: handler,
	}
	return httpServer.ListenAndServe()
}

// logLocalIPs prints non-loopback IPv4 addresses for operator
// convenience at startup.
func logLocalIPs(logger *zap.SugaredLogger, addr string) {
	interfaces, err := net.Interfaces()
	if err != nil {
		logger.Warnw("could not enumerate network interfaces", "err", err)
		return
	}
	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				logger.Infow("reachable at", "ip", v4.String(), "listen_addr", addr)
			}
		}
	}
}
