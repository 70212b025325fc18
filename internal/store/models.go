// Package store contains the database layer for epistola.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tenant represents a tenant in the multi-tenant system.
// All operations must be scoped by TenantID.
type Tenant struct {
	ID             uuid.UUID
	Name           string
	RateLimit      int
	RateLimitBurst int
	CreatedAt      time.Time
}

// RequestStatus represents the lifecycle state of a generation request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusFailed     RequestStatus = "FAILED"
	StatusCancelled  RequestStatus = "CANCELLED"
)

// Terminal reports whether the status is a final state.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is one of the five known status literals.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// GenerationRequest is one unit of document-generation work.
//
// Exactly one of VersionID and Environment is set. An environment reference
// is resolved to the environment's currently-active version at claim time,
// not at submission time.
type GenerationRequest struct {
	ID            uuid.UUID
	BatchID       *uuid.UUID
	TenantID      uuid.UUID
	TemplateID    uuid.UUID
	VariantID     uuid.UUID
	VersionID     *uuid.UUID
	Environment   *string
	Data          json.RawMessage
	Filename      *string
	CorrelationID *string
	DocumentID    *uuid.UUID
	Status        RequestStatus
	ClaimedBy     *string
	ClaimedAt     *time.Time
	ErrorMessage  *string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	ExpiresAt     *time.Time
}

// Batch groups sibling generation requests submitted together.
// It carries no state machine of its own; callers derive batch completion
// by aggregating member request statuses.
type Batch struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	TotalCount int
	CreatedAt  time.Time
}

// Document is the metadata row recorded for a successfully rendered output.
// The bytes themselves live in the content store under StorageKey.
type Document struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	TemplateID    uuid.UUID
	RequestID     uuid.UUID
	Filename      string
	CorrelationID *string
	ContentType   string
	Size          int64
	StorageKey    string
	CreatedAt     time.Time
}

// Template is the root of a template family. Variants and versions hang off it.
type Template struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Name             string
	DefaultVariantID *uuid.UUID
	ThemeID          *uuid.UUID
	CreatedAt        time.Time
}

// Variant is a presentation variation of a template (language, brand, ...).
// Attributes drive criteria-based selection; Position is the creation order
// used as the final tie-breaker.
type Variant struct {
	ID         uuid.UUID
	TemplateID uuid.UUID
	Attributes map[string]string
	Position   int
	CreatedAt  time.Time
}

// ThemeRefInherit marks a version that uses its template's default theme.
const ThemeRefInherit = "inherit"

// Version is an immutable published snapshot of a variant's template graph.
// ThemeRef is either ThemeRefInherit or an explicit theme id.
type Version struct {
	ID        uuid.UUID
	VariantID uuid.UUID
	Number    int
	Graph     json.RawMessage
	ThemeRef  string
	CreatedAt time.Time
}

// Environment maps a named deployment target (e.g. "production") to the
// version of a variant that is currently active there.
type Environment struct {
	TenantID        uuid.UUID
	VariantID       uuid.UUID
	Name            string
	ActiveVersionID uuid.UUID
}

// Theme is a named bundle of default document styles, page settings and
// block style presets. The JSON blobs are decoded by the template package.
type Theme struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Name           string
	DocumentStyles json.RawMessage
	PageSettings   json.RawMessage
	BlockPresets   json.RawMessage
	CreatedAt      time.Time
}

// DocumentFilter narrows ListDocuments results. Nil fields match everything.
type DocumentFilter struct {
	TemplateID    *uuid.UUID
	CorrelationID *string
}
