// Package server exposes snapshots, reports and on-demand classification
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/esmstat/pkg/classify"
	"github.com/matzehuels/esmstat/pkg/crawl"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

// Server serves the esmstat HTTP API.
type Server struct {
	router     chi.Router
	server     *http.Server
	logger     *log.Logger
	store      snapshot.Store
	registry   crawl.Fetcher
	classifier *classify.Classifier
}

// New creates a server. registry may be nil, which disables /classify.
func New(addr string, store snapshot.Store, registry crawl.Fetcher, classifier *classify.Classifier, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger,
		store:      store,
		registry:   registry,
		classifier: classifier,
	}
	s.routes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/chart.svg", s.handleChart)
	s.router.Get("/report.csv", s.handleCSV)
	s.router.Get("/snapshots", s.handleSnapshots)
	s.router.Get("/snapshots/{date}", s.handleSnapshot)
	s.router.Get("/classify/*", s.handleClassify)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.server.Addr)
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}

// logRequests logs one line per request after it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Microsecond),
			"req", middleware.GetReqID(r.Context()))
	})
}
