package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/command"
	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/observability"
	"github.com/ultratune/ultratune/internal/pipeline"
	planrpc "github.com/ultratune/ultratune/internal/rpc/plan"
	"github.com/ultratune/ultratune/internal/version"
)

// Server hosts the daemon endpoints: health, metrics and the plan streams.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	runner  planrpc.Runner
	metrics *observability.Metrics
}

// NewServer constructs a daemon instance. Plans run with a real capability prober and never launch the engine.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics()
	prober := capability.NewProber(&command.Runner{}, cfg.Capability, logger)
	p := pipeline.New(pipeline.Components{Prober: prober, Metrics: metrics, Logger: logger})
	runner := &planrpc.PipelineRunner{Config: cfg, Planner: p, Logger: logger}

	return &Server{cfg: cfg, logger: logger, runner: runner, metrics: metrics}, nil
}

// Handler builds the HTTP handler tree. Connect transport is served over h2c.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.Handle(planrpc.NDJSONPath, planrpc.NewHandler(s.runner, s.metrics))

	if s.transport() == "ndjson" {
		return mux
	}
	path, handler := planrpc.NewConnectHandler(s.runner, s.metrics)
	mux.Handle(path, handler)
	return h2c.NewHandler(mux, &http2.Server{})
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting ultratune daemon",
			zap.String("addr", s.cfg.Server.Addr),
			zap.String("transport", s.transport()),
			zap.String("version", version.Version),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down ultratune daemon")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) transport() string {
	t := strings.ToLower(strings.TrimSpace(s.cfg.Server.Transport))
	if t == "" {
		return "connect"
	}
	return t
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"status":"ok","version":%q}`, version.Version)
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.MetricsEnabled {
		http.NotFound(w, r)
		return
	}

	promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
