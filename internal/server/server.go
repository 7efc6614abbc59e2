// Package server exposes the bill pipeline and record store over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/core"
	"github.com/joseph-ayodele/carbon-tracker/internal/export"
	"github.com/joseph-ayodele/carbon-tracker/internal/repository"
)

// BillProcessor runs one staged upload through the pipeline.
type BillProcessor interface {
	Process(ctx context.Context, up core.Upload) core.Outcome
}

type Server struct {
	cfg      common.ServerConfig
	proc     BillProcessor
	store    repository.AnalysisRecordStore
	exporter *export.Service
	limiter  *IPRateLimiter
	logger   *slog.Logger
}

func NewServer(cfg common.ServerConfig, proc BillProcessor, store repository.AnalysisRecordStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	return &Server{
		cfg:      cfg,
		proc:     proc,
		store:    store,
		exporter: export.NewService(store, logger),
		limiter:  NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:   logger,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestID(s.logger))
	r.Use(instrument(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/bills", func(r chi.Router) {
		r.With(s.limiter.Middleware(s.logger)).Post("/", s.uploadBill)
		r.Get("/", s.listBills)
		r.Get("/export.xlsx", s.exportBills)
		r.Get("/{id}", s.getBill)
	})
	return r
}

// Run serves HTTP on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
