package postgres

import (
	"context"
	"fmt"

	"epistola/internal/store"

	"github.com/google/uuid"
)

// CreateDocument inserts a document metadata row.
func (s *Store) CreateDocument(ctx context.Context, doc *store.Document) error {
	query := `
		INSERT INTO documents
			(id, tenant_id, template_id, request_id, filename, correlation_id,
			 content_type, size, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.TenantID,
		doc.TemplateID,
		doc.RequestID,
		doc.Filename,
		doc.CorrelationID,
		doc.ContentType,
		doc.Size,
		doc.StorageKey,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document by id, scoped to the tenant.
func (s *Store) GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*store.Document, error) {
	query := `
		SELECT id, tenant_id, template_id, request_id, filename, correlation_id,
		       content_type, size, storage_key, created_at
		FROM documents
		WHERE id = $1 AND tenant_id = $2
	`

	var d store.Document
	err := s.db.QueryRowContext(ctx, query, documentID, tenantID).Scan(
		&d.ID, &d.TenantID, &d.TemplateID, &d.RequestID, &d.Filename, &d.CorrelationID,
		&d.ContentType, &d.Size, &d.StorageKey, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns the tenant's documents, newest first, optionally
// filtered by template and correlation id.
func (s *Store) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter store.DocumentFilter, limit, offset int) ([]store.Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	args := []interface{}{tenantID, limit, offset}
	where := "WHERE tenant_id = $1"
	if filter.TemplateID != nil {
		args = append(args, *filter.TemplateID)
		where += fmt.Sprintf(" AND template_id = $%d", len(args))
	}
	if filter.CorrelationID != nil {
		args = append(args, *filter.CorrelationID)
		where += fmt.Sprintf(" AND correlation_id = $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, template_id, request_id, filename, correlation_id,
		       content_type, size, storage_key, created_at
		FROM documents
		%s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents query failed: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var d store.Document
		err := rows.Scan(
			&d.ID, &d.TenantID, &d.TemplateID, &d.RequestID, &d.Filename, &d.CorrelationID,
			&d.ContentType, &d.Size, &d.StorageKey, &d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list documents scan failed: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document metadata row.
func (s *Store) DeleteDocument(ctx context.Context, tenantID, documentID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = $1 AND tenant_id = $2", documentID, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
