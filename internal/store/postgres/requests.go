package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"epistola/internal/store"

	"github.com/google/uuid"
)

const requestColumns = `id, batch_id, tenant_id, template_id, variant_id, version_id, environment,
		data, filename, correlation_id, document_id, status, claimed_by, claimed_at,
		error_message, created_at, started_at, completed_at, expires_at`

// CreateBatch inserts a batch metadata row.
func (s *Store) CreateBatch(ctx context.Context, tx store.DBTransaction, batch *store.Batch) error {
	query := `
		INSERT INTO generation_batches (id, tenant_id, total_count, created_at)
		VALUES ($1, $2, $3, $4)
	`

	executor := s.getExecutor(tx)
	_, err := executor.ExecContext(ctx, query,
		batch.ID,
		batch.TenantID,
		batch.TotalCount,
		batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch %s: %w", batch.ID, err)
	}
	return nil
}

// CreateRequest inserts a new PENDING generation request.
func (s *Store) CreateRequest(ctx context.Context, tx store.DBTransaction, req *store.GenerationRequest) error {
	query := `
		INSERT INTO generation_requests
			(id, batch_id, tenant_id, template_id, variant_id, version_id, environment,
			 data, filename, correlation_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := s.getExecutor(tx)
	_, err := executor.ExecContext(ctx, query,
		req.ID,
		req.BatchID,
		req.TenantID,
		req.TemplateID,
		req.VariantID,
		req.VersionID,
		req.Environment,
		req.Data,
		req.Filename,
		req.CorrelationID,
		req.Status,
		req.CreatedAt,
		req.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request %s: %w", req.ID, err)
	}
	return nil
}

// ClaimBatch atomically claims up to 'limit' PENDING requests for instanceID.
//
// The conditional UPDATE is the only transition out of PENDING on the worker
// path. The inner SELECT uses FOR UPDATE SKIP LOCKED so that concurrent
// claim attempts never block each other and never return the same row.
func (s *Store) ClaimBatch(ctx context.Context, instanceID string, limit int) ([]store.GenerationRequest, error) {
	if limit <= 0 {
		limit = 1
	}

	query := fmt.Sprintf(`
		UPDATE generation_requests
		SET status = $1, claimed_by = $2, claimed_at = NOW(), started_at = NOW()
		WHERE id IN (
			SELECT id
			FROM generation_requests
			WHERE status = $3
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $4
		)
		RETURNING %s
	`, requestColumns)

	rows, err := s.db.QueryContext(ctx, query, store.StatusInProgress, instanceID, store.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim batch query failed: %w", err)
	}
	defer rows.Close()

	var claimed []store.GenerationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("claim batch scan failed: %w", err)
		}
		claimed = append(claimed, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim batch rows error: %w", err)
	}

	return claimed, nil
}

// CompleteRequest marks an IN_PROGRESS request COMPLETED.
func (s *Store) CompleteRequest(ctx context.Context, requestID, documentID uuid.UUID) error {
	query := `
		UPDATE generation_requests
		SET status = $1, document_id = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`

	res, err := s.db.ExecContext(ctx, query, store.StatusCompleted, documentID, requestID, store.StatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to complete request %s: %w", requestID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race against cancel; the render output is discarded.
		return sql.ErrNoRows
	}
	return nil
}

// FailRequest marks an IN_PROGRESS request FAILED with an error message.
func (s *Store) FailRequest(ctx context.Context, requestID uuid.UUID, errMsg string) error {
	query := `
		UPDATE generation_requests
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`

	_, err := s.db.ExecContext(ctx, query, store.StatusFailed, errMsg, requestID, store.StatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to fail request %s: %w", requestID, err)
	}
	return nil
}

// CancelRequest transitions a cancellable request to CANCELLED.
// It races against ClaimBatch and CompleteRequest; when it loses, it simply
// affects zero rows and reports false.
func (s *Store) CancelRequest(ctx context.Context, tenantID, requestID uuid.UUID) (bool, error) {
	query := `
		UPDATE generation_requests
		SET status = $1, completed_at = NOW()
		WHERE id = $2 AND tenant_id = $3 AND status IN ($4, $5)
	`

	res, err := s.db.ExecContext(ctx, query,
		store.StatusCancelled, requestID, tenantID, store.StatusPending, store.StatusInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to cancel request %s: %w", requestID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetRequest returns a request by id, scoped to the tenant.
func (s *Store) GetRequest(ctx context.Context, tenantID, requestID uuid.UUID) (*store.GenerationRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM generation_requests
		WHERE id = $1 AND tenant_id = $2
	`, requestColumns)

	req, err := scanRequest(s.db.QueryRowContext(ctx, query, requestID, tenantID))
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListRequests returns the tenant's requests, newest first.
func (s *Store) ListRequests(ctx context.Context, tenantID uuid.UUID, status *store.RequestStatus, limit, offset int) ([]store.GenerationRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	args := []interface{}{tenantID, limit, offset}
	where := "WHERE tenant_id = $1"
	if status != nil {
		where += " AND status = $4"
		args = append(args, *status)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM generation_requests
		%s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, requestColumns, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests query failed: %w", err)
	}
	defer rows.Close()

	var result []store.GenerationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("list requests scan failed: %w", err)
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

// CountPending returns the number of PENDING requests across all tenants.
// Used by the controller's queue-depth gauge.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM generation_requests WHERE status = $1", store.StatusPending,
	).Scan(&count)
	return count, err
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row scanner) (*store.GenerationRequest, error) {
	var req store.GenerationRequest
	var createdAt time.Time

	err := row.Scan(
		&req.ID, &req.BatchID, &req.TenantID, &req.TemplateID, &req.VariantID,
		&req.VersionID, &req.Environment, &req.Data, &req.Filename, &req.CorrelationID,
		&req.DocumentID, &req.Status, &req.ClaimedBy, &req.ClaimedAt,
		&req.ErrorMessage, &createdAt, &req.StartedAt, &req.CompletedAt, &req.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	req.CreatedAt = createdAt
	return &req, nil
}
