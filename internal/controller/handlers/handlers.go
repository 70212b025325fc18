// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"epistola/internal/generation"
	"epistola/internal/store"
	"epistola/pkg/api"
)

// StoreFactory combines the interfaces needed for the controller to function.
type StoreFactory interface {
	Ping(ctx context.Context) error
	store.TenantStore
	generation.Store
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store StoreFactory
	svc   *generation.Service
}

// New creates a new Handlers instance with the given dependencies.
func New(s StoreFactory, svc *generation.Service) *Handlers {
	return &Handlers{store: s, svc: svc}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// serviceError maps domain errors to HTTP status codes.
func (h *Handlers) serviceError(w http.ResponseWriter, err error) {
	var verr *generation.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondJson(w, http.StatusBadRequest, api.ErrorResponse{
			Error:   verr.Message,
			Code:    "400",
			Details: verr.Duplicates,
		})
	case errors.Is(err, generation.ErrNotFound),
		errors.Is(err, generation.ErrNoMatchingVariant):
		h.httpError(w, err.Error(), http.StatusNotFound)
	default:
		h.httpError(w, "Internal error", http.StatusInternalServerError)
	}
}
