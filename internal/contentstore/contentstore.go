// Package contentstore defines the pluggable storage contract for rendered
// document bytes, keyed by convention as documents/{tenantId}/{documentId}.
package contentstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no object exists under a key.
var ErrNotFound = errors.New("content not found")

// Store is the storage backend contract. Keys are written once: document
// ids are fresh per successful render, so implementations never face
// concurrent writes to the same key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// DocumentKey builds the canonical storage key for a rendered document.
func DocumentKey(tenantID, documentID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/%s", tenantID, documentID)
}
