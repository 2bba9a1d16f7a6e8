package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vipra/internal/application/port/output"
)

type Server struct {
	srv    *http.Server
	logger output.LoggerPort
}

// NewHandler serves /metrics from g and logs each request with httplog.
func NewHandler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	reqLog := httplog.NewLogger("vipra-metrics", httplog.Options{
		JSON:     true,
		Concise:  true,
		LogLevel: "warn",
	})
	return httplog.RequestLogger(reqLog)(mux)
}

func NewServer(addr string, g prometheus.Gatherer, logger output.LoggerPort) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(g),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background and returns the bound address.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", fmt.Errorf("metrics listen on %s: %w", s.srv.Addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && s.logger != nil {
			s.logger.Error("Metrics server stopped", "error", err)
		}
	}()
	if s.logger != nil {
		s.logger.Info("Metrics server listening", "addr", ln.Addr().String())
	}
	return ln.Addr().String(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
