package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// TenantStore handles retrieving tenant information for authentication.
type TenantStore interface {
	// CreateTenant inserts a new tenant to the database
	CreateTenant(ctx context.Context, tenant *Tenant, hashedKey string) error

	// GetTenantByID returns a tenant by its ID.
	GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// GetTenantByAPIKeyHash returns a tenant by its API key hash.
	GetTenantByAPIKeyHash(ctx context.Context, hash string) (*Tenant, error)
}

// RequestStore handles the persistence and lifecycle of generation requests.
//
// The only mutation paths out of PENDING are ClaimBatch and CancelRequest;
// both are implemented as single conditional updates so that concurrent
// workers cannot double-claim a request.
type RequestStore interface {
	// CreateBatch inserts a batch metadata row.
	CreateBatch(ctx context.Context, tx DBTransaction, batch *Batch) error

	// CreateRequest inserts a new PENDING generation request.
	CreateRequest(ctx context.Context, tx DBTransaction, req *GenerationRequest) error

	// ClaimBatch atomically transitions up to 'limit' PENDING requests to
	// IN_PROGRESS on behalf of instanceID and returns the claimed rows.
	// Returns a nil slice when nothing is pending.
	ClaimBatch(ctx context.Context, instanceID string, limit int) ([]GenerationRequest, error)

	// CompleteRequest marks an IN_PROGRESS request COMPLETED and records the
	// produced document id.
	CompleteRequest(ctx context.Context, requestID, documentID uuid.UUID) error

	// FailRequest marks an IN_PROGRESS request FAILED with an error message.
	FailRequest(ctx context.Context, requestID uuid.UUID, errMsg string) error

	// CancelRequest transitions a PENDING or IN_PROGRESS request owned by the
	// tenant to CANCELLED. Returns false if no row was affected.
	CancelRequest(ctx context.Context, tenantID, requestID uuid.UUID) (bool, error)

	// GetRequest returns a request by id, scoped to the tenant.
	GetRequest(ctx context.Context, tenantID, requestID uuid.UUID) (*GenerationRequest, error)

	// ListRequests returns the tenant's requests, optionally filtered by status,
	// newest first.
	ListRequests(ctx context.Context, tenantID uuid.UUID, status *RequestStatus, limit, offset int) ([]GenerationRequest, error)

	// CountPending returns the number of PENDING requests across all tenants.
	CountPending(ctx context.Context) (int64, error)
}

// TemplateStore exposes the read side of the template catalogue that the
// engine needs. Editing is owned by the (external) template editor.
type TemplateStore interface {
	GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*Template, error)
	GetVariant(ctx context.Context, variantID uuid.UUID) (*Variant, error)
	ListVariants(ctx context.Context, templateID uuid.UUID) ([]Variant, error)
	GetVersion(ctx context.Context, versionID uuid.UUID) (*Version, error)

	// GetActiveVersion resolves an environment name to the version currently
	// active for the variant in that environment.
	GetActiveVersion(ctx context.Context, variantID uuid.UUID, environment string) (*Version, error)

	GetTheme(ctx context.Context, themeID uuid.UUID) (*Theme, error)
}

// DocumentStore handles document metadata rows.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, tenantID uuid.UUID, filter DocumentFilter, limit, offset int) ([]Document, error)

	// DeleteDocument removes the metadata row. Returns false if the row did
	// not exist or is not owned by the tenant.
	DeleteDocument(ctx context.Context, tenantID, documentID uuid.UUID) (bool, error)
}
