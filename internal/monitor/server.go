package monitor

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teivovo/EthernetICMP/internal/logging"
)

// MetricsServer exposes the Prometheus /metrics endpoint for watch mode.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewMetricsServer creates a metrics server listening on addr.
func NewMetricsServer(addr string, logger *slog.Logger) *MetricsServer {
	if logger == nil {
		logger = logging.NopLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger.With(slog.String(logging.KeyComponent, "metrics")),
	}
}

// Start begins serving in a background goroutine.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.logger.Info("metrics endpoint listening", logging.KeyAddress, ln.Addr().String())
	go s.server.Serve(ln)

	return nil
}

// Stop shuts the server down gracefully.
func (s *MetricsServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Address returns the bound listen address, or nil before Start.
func (s *MetricsServer) Address() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}
