package generation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"epistola/internal/contentstore"
	"epistola/internal/store"
)

// Store combines the repository interfaces the engine depends on.
type Store interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	store.RequestStore
	store.TemplateStore
	store.DocumentStore
}

// SubmitItem is one requested document. Exactly one of VersionID and
// Environment must be set; the variant is addressed either by explicit id
// or by selection criteria (falling back to the template default).
type SubmitItem struct {
	TemplateID    uuid.UUID
	VariantID     *uuid.UUID
	Criteria      *VariantCriteria
	VersionID     *uuid.UUID
	Environment   *string
	Data          json.RawMessage
	Filename      *string
	CorrelationID *string
}

// Service validates and enqueues generation requests and exposes the
// tenant-scoped job/document query surface. Results are asynchronous:
// submission returns a PENDING request that workers later claim.
type Service struct {
	store   Store
	content contentstore.Store
}

// NewService creates the generation service.
func NewService(s Store, content contentstore.Store) *Service {
	return &Service{store: s, content: content}
}

// SubmitSingle validates one item and creates a PENDING request.
func (s *Service) SubmitSingle(ctx context.Context, tenantID uuid.UUID, item SubmitItem) (*store.GenerationRequest, error) {
	resolved, err := s.validateItem(ctx, tenantID, item)
	if err != nil {
		return nil, err
	}

	req := buildRequest(tenantID, nil, item, resolved)
	if err := s.store.CreateRequest(ctx, nil, req); err != nil {
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}
	return req, nil
}

// SubmitBatch validates every item and atomically creates the batch row
// plus all request rows. Nothing is persisted when any item is invalid.
func (s *Service) SubmitBatch(ctx context.Context, tenantID uuid.UUID, items []SubmitItem) (uuid.UUID, error) {
	if len(items) == 0 {
		return uuid.Nil, &ValidationError{Message: "batch must contain at least one item"}
	}

	if dups := findDuplicates(items); len(dups) > 0 {
		return uuid.Nil, &ValidationError{
			Message:    "duplicate correlation ids or filenames within batch",
			Duplicates: dups,
		}
	}

	// Validation of all N items happens before any row is persisted.
	resolved := make([]resolvedItem, len(items))
	for i, item := range items {
		r, err := s.validateItem(ctx, tenantID, item)
		if err != nil {
			return uuid.Nil, fmt.Errorf("item %d: %w", i, err)
		}
		resolved[i] = r
	}

	batch := &store.Batch{
		ID:         uuid.New(),
		TenantID:   tenantID,
		TotalCount: len(items),
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.store.CreateBatch(ctx, tx, batch); err != nil {
		return uuid.Nil, err
	}
	for i, item := range items {
		req := buildRequest(tenantID, &batch.ID, item, resolved[i])
		if err := s.store.CreateRequest(ctx, tx, req); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return batch.ID, nil
}

// Cancel transitions a PENDING or IN_PROGRESS request to CANCELLED.
// It is safe to call concurrently with a worker's claim or complete; the
// losing side of the race simply affects zero rows.
func (s *Service) Cancel(ctx context.Context, tenantID, requestID uuid.UUID) (bool, error) {
	return s.store.CancelRequest(ctx, tenantID, requestID)
}

// GetJob returns one request, scoped to the tenant.
func (s *Service) GetJob(ctx context.Context, tenantID, requestID uuid.UUID) (*store.GenerationRequest, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListJobs returns the tenant's requests, optionally filtered by status.
func (s *Service) ListJobs(ctx context.Context, tenantID uuid.UUID, status *store.RequestStatus, limit, offset int) ([]store.GenerationRequest, error) {
	if status != nil && !status.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown status %q", *status)}
	}
	return s.store.ListRequests(ctx, tenantID, status, limit, offset)
}

// GetDocument returns document metadata, scoped to the tenant.
func (s *Service) GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*store.Document, error) {
	doc, err := s.store.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// GetDocumentContent returns the stored bytes for a document.
func (s *Service) GetDocumentContent(ctx context.Context, tenantID, documentID uuid.UUID) (*store.Document, []byte, error) {
	doc, err := s.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.content.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, contentstore.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return doc, data, nil
}

// ListDocuments returns the tenant's documents with optional filters.
func (s *Service) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter store.DocumentFilter, limit, offset int) ([]store.Document, error) {
	return s.store.ListDocuments(ctx, tenantID, filter, limit, offset)
}

// DeleteDocument removes the metadata row and the stored bytes.
func (s *Service) DeleteDocument(ctx context.Context, tenantID, documentID uuid.UUID) (bool, error) {
	doc, err := s.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.store.DeleteDocument(ctx, tenantID, documentID)
	if err != nil || !deleted {
		return deleted, err
	}
	if _, err := s.content.Delete(ctx, doc.StorageKey); err != nil {
		// Metadata is already gone; an orphaned object is acceptable.
		return true, nil
	}
	return true, nil
}

// resolvedItem is the outcome of per-item reference validation.
type resolvedItem struct {
	variantID uuid.UUID
}

// validateItem checks every reference an item carries and resolves its
// variant. Runs before any row is persisted so a bad reference fails the
// whole submission instead of surfacing later as a render failure.
func (s *Service) validateItem(ctx context.Context, tenantID uuid.UUID, item SubmitItem) (resolvedItem, error) {
	if (item.VersionID == nil) == (item.Environment == nil) {
		return resolvedItem{}, &ValidationError{
			Message: "exactly one of version and environment must be set",
		}
	}
	if item.VariantID != nil && item.Criteria != nil {
		return resolvedItem{}, &ValidationError{
			Message: "variant id and selection criteria are mutually exclusive",
		}
	}

	tpl, err := s.store.GetTemplate(ctx, tenantID, item.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resolvedItem{}, fmt.Errorf("template %s: %w", item.TemplateID, ErrNotFound)
		}
		return resolvedItem{}, err
	}

	variantID, err := s.resolveVariant(ctx, tpl, item)
	if err != nil {
		return resolvedItem{}, err
	}

	if item.VersionID != nil {
		version, err := s.store.GetVersion(ctx, *item.VersionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return resolvedItem{}, fmt.Errorf("version %s: %w", *item.VersionID, ErrNotFound)
			}
			return resolvedItem{}, err
		}
		if version.VariantID != variantID {
			return resolvedItem{}, fmt.Errorf("version %s does not belong to variant %s: %w", version.ID, variantID, ErrNotFound)
		}
	} else {
		// The environment must exist now; the active version it points at is
		// re-resolved at claim time.
		if _, err := s.store.GetActiveVersion(ctx, variantID, *item.Environment); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return resolvedItem{}, fmt.Errorf("environment %q: %w", *item.Environment, ErrNotFound)
			}
			return resolvedItem{}, err
		}
	}

	return resolvedItem{variantID: variantID}, nil
}

func (s *Service) resolveVariant(ctx context.Context, tpl *store.Template, item SubmitItem) (uuid.UUID, error) {
	switch {
	case item.VariantID != nil:
		variant, err := s.store.GetVariant(ctx, *item.VariantID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return uuid.Nil, fmt.Errorf("variant %s: %w", *item.VariantID, ErrNotFound)
			}
			return uuid.Nil, err
		}
		if variant.TemplateID != tpl.ID {
			return uuid.Nil, fmt.Errorf("variant %s does not belong to template %s: %w", variant.ID, tpl.ID, ErrNotFound)
		}
		return variant.ID, nil

	case item.Criteria != nil:
		variants, err := s.store.ListVariants(ctx, tpl.ID)
		if err != nil {
			return uuid.Nil, err
		}
		return ResolveVariant(variants, tpl.DefaultVariantID, *item.Criteria)

	default:
		if tpl.DefaultVariantID == nil {
			return uuid.Nil, ErrNoMatchingVariant
		}
		return *tpl.DefaultVariantID, nil
	}
}

// findDuplicates collects every non-null correlation id and filename that
// appears more than once within the batch. Null values never collide.
func findDuplicates(items []SubmitItem) []string {
	seen := map[string]int{}
	for _, item := range items {
		if item.CorrelationID != nil {
			seen["correlationId "+*item.CorrelationID]++
		}
		if item.Filename != nil {
			seen["filename "+*item.Filename]++
		}
	}

	var dups []string
	for _, item := range items {
		if item.CorrelationID != nil {
			key := "correlationId " + *item.CorrelationID
			if seen[key] > 1 {
				dups = append(dups, *item.CorrelationID)
				seen[key] = 0 // report each value once
			}
		}
		if item.Filename != nil {
			key := "filename " + *item.Filename
			if seen[key] > 1 {
				dups = append(dups, *item.Filename)
				seen[key] = 0
			}
		}
	}
	return dups
}

func buildRequest(tenantID uuid.UUID, batchID *uuid.UUID, item SubmitItem, resolved resolvedItem) *store.GenerationRequest {
	data := item.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return &store.GenerationRequest{
		ID:            uuid.New(),
		BatchID:       batchID,
		TenantID:      tenantID,
		TemplateID:    item.TemplateID,
		VariantID:     resolved.variantID,
		VersionID:     item.VersionID,
		Environment:   item.Environment,
		Data:          data,
		Filename:      item.Filename,
		CorrelationID: item.CorrelationID,
		Status:        store.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}
