// Package controller contains the HTTP admin API for the scheduler.
package controller

import (
	"context"
	"net/http"
	"time"

	"flowplane/internal/controller/handlers"
	"flowplane/internal/controller/middleware"
)

// Config holds the server's tunables.
type Config struct {
	Addr           string
	DefaultTenant  string
	RateLimit      float64
	RateLimitBurst int
}

// Server is the HTTP server for the admin API.
type Server struct {
	httpServer *http.Server
}

// New creates a new admin API server.
func New(config Config, store handlers.StoreFactory, control handlers.SchedulerControl, metrics http.Handler) *Server {
	h := handlers.New(store, control, config.DefaultTenant)
	limitMW := middleware.RateLimitMiddleware(config.RateLimit, config.RateLimitBurst)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	mux.HandleFunc("GET /triggers", h.ListTriggers)
	mux.Handle("PUT /triggers/{namespace}/{flow}/{trigger}/disable", h.SetTriggerDisabled(true))
	mux.Handle("PUT /triggers/{namespace}/{flow}/{trigger}/enable", h.SetTriggerDisabled(false))

	mux.HandleFunc("POST /backfills", h.CreateBackfill)
	mux.Handle("PUT /backfills/{namespace}/{flow}/{trigger}/pause", h.SetBackfillPaused(true))
	mux.Handle("PUT /backfills/{namespace}/{flow}/{trigger}/resume", h.SetBackfillPaused(false))
	mux.HandleFunc("DELETE /backfills/{namespace}/{flow}/{trigger}", h.DeleteBackfill)

	mux.HandleFunc("POST /flows", h.SaveFlow)
	mux.HandleFunc("GET /flows", h.ListFlows)
	mux.HandleFunc("GET /executions/{id}", h.GetExecution)

	return &Server{
		httpServer: &http.Server{
			Addr:         config.Addr,
			Handler:      limitMW(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
