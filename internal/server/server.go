// Package server exposes the job list and the sync trigger over HTTP
// for the browser dashboard.
//
// Sync invocations are serialized: the merge protocol is not designed
// for concurrent overlapping writes to the same remote collection, so a
// sync request arriving while one is in flight is rejected with 409.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/jobs"
	"github.com/antelabs/bodyshop/pkg/model"
	syncpkg "github.com/antelabs/bodyshop/pkg/sync"
)

// SyncerFactory builds the orchestrator for a backend kind. Indirection
// keeps the HTTP layer testable without network clients.
type SyncerFactory func(kind backend.Kind) (syncpkg.Syncer, error)

// Server is the dashboard HTTP API.
type Server struct {
	host       string
	port       int
	service    *jobs.Service
	newSyncer  SyncerFactory
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server

	// syncBusy guards the single-flight sync rule.
	syncBusy atomic.Bool
}

// New builds the server and its routes.
func New(host string, port int, service *jobs.Service, newSyncer SyncerFactory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		host:      host,
		port:      port,
		service:   service,
		newSyncer: newSyncer,
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleCreateJob)
		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Put("/status", s.handleSetStatus)
			r.Put("/repair-type", s.handleSetRepairType)
			r.Post("/assessment", s.handleAppendAssessment)
			r.Put("/intake-image", s.handleSetIntakeImage)
			r.Post("/damage-images", s.handleAddDamageImage)
			r.Delete("/damage-images/{index}", s.handleRemoveDamageImage)
		})
		r.Post("/sync", s.handleSync)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	return r
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second, // syncs can be slow on big collections
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runSync enforces the single-flight rule and swaps the merged result
// in as the new local source of truth.
func (s *Server) runSync(ctx context.Context, kind backend.Kind) ([]model.Job, error) {
	if !s.syncBusy.CompareAndSwap(false, true) {
		return nil, errSyncInFlight
	}
	defer s.syncBusy.Store(false)

	syncer, err := s.newSyncer(kind)
	if err != nil {
		return nil, err
	}

	merged, err := syncer.Sync(ctx, s.service.List())
	if err != nil {
		return nil, err
	}
	if err := s.service.Replace(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

var errSyncInFlight = errors.New("a sync is already in flight")
