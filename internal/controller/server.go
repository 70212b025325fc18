// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"epistola/internal/contentstore"
	"epistola/internal/controller/handlers"
	"epistola/internal/controller/middleware"
	"epistola/internal/generation"
)

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr string, store handlers.StoreFactory, content contentstore.Store, log *slog.Logger) *Server {
	svc := generation.NewService(store, content)
	h := handlers.New(store, svc)
	logMW := middleware.LoggingMiddleware(log)

	authMW := middleware.AuthMiddleware(store)
	rateMW := middleware.RateLimitMiddleware()
	submit := func(next http.HandlerFunc) http.Handler {
		return authMW(rateMW(next))
	}
	authed := func(next http.HandlerFunc) http.Handler {
		return authMW(next)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /tenants", h.CreateTenant)

	// Submission endpoints are rate limited per tenant.
	mux.Handle("POST /requests", submit(h.SubmitRequest))
	mux.Handle("POST /batches", submit(h.SubmitBatch))

	// Query and lifecycle endpoints.
	mux.Handle("GET /requests/{id}", authed(h.GetRequest))
	mux.Handle("GET /requests", authed(h.ListRequests))
	mux.Handle("POST /requests/{id}/cancel", authed(h.CancelRequest))
	mux.Handle("GET /documents", authed(h.ListDocuments))
	mux.Handle("GET /documents/{id}", authed(h.GetDocument))
	mux.Handle("GET /documents/{id}/content", authed(h.GetDocumentContent))
	mux.Handle("DELETE /documents/{id}", authed(h.DeleteDocument))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      logMW(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
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
