package handlers

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/google/uuid"

	"epistola/internal/contentstore"
	"epistola/internal/controller/middleware"
	"epistola/internal/generation"
	"epistola/internal/store"
)

// Mock transaction
type mockTx struct{}

func (m *mockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (m *mockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (m *mockTx) Commit() error { return nil }

func (m *mockTx) Rollback() error { return nil }

// Mock Store
type mockStore struct {
	pingErr         error
	beginTxErr      error
	createTenantErr error

	// Template hooks
	getTemplateResp      *store.Template
	getTemplateErr       error
	getVariantResp       *store.Variant
	getVariantErr        error
	listVariantsResp     []store.Variant
	getVersionResp       *store.Version
	getVersionErr        error
	getActiveVersionResp *store.Version
	getActiveVersionErr  error
	getThemeResp         *store.Theme
	getThemeErr          error

	// Request hooks
	createRequestErr  error
	createBatchErr    error
	getRequestResp    *store.GenerationRequest
	getRequestErr     error
	listRequestsResp  []store.GenerationRequest
	listRequestsErr   error
	cancelRequestResp bool
	cancelRequestErr  error

	// Document hooks
	getDocumentResp    *store.Document
	getDocumentErr     error
	listDocumentsResp  []store.Document
	listDocumentsErr   error
	deleteDocumentResp bool
	deleteDocumentErr  error

	// Spies
	createdRequests []*store.GenerationRequest
	createdBatches  []*store.Batch
}

func (m *mockStore) BeginTx(ctx context.Context) (store.Tx, error) {
	if m.beginTxErr != nil {
		return nil, m.beginTxErr
	}
	return &mockTx{}, nil
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	return m.createTenantErr
}

func (m *mockStore) GetTenantByID(ctx context.Context, id uuid.UUID) (*store.Tenant, error) {
	return nil, sql.ErrNoRows
}

func (m *mockStore) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	return nil, sql.ErrNoRows // Handled by Auth Middleware, not Handlers
}

func (m *mockStore) CreateBatch(ctx context.Context, tx store.DBTransaction, batch *store.Batch) error {
	m.createdBatches = append(m.createdBatches, batch)
	return m.createBatchErr
}

func (m *mockStore) CreateRequest(ctx context.Context, tx store.DBTransaction, req *store.GenerationRequest) error {
	m.createdRequests = append(m.createdRequests, req)
	return m.createRequestErr
}

func (m *mockStore) ClaimBatch(ctx context.Context, instanceID string, limit int) ([]store.GenerationRequest, error) {
	return nil, nil
}

func (m *mockStore) CompleteRequest(ctx context.Context, requestID, documentID uuid.UUID) error {
	return nil
}

func (m *mockStore) FailRequest(ctx context.Context, requestID uuid.UUID, errMsg string) error {
	return nil
}

func (m *mockStore) CancelRequest(ctx context.Context, tenantID, requestID uuid.UUID) (bool, error) {
	return m.cancelRequestResp, m.cancelRequestErr
}

func (m *mockStore) GetRequest(ctx context.Context, tenantID, requestID uuid.UUID) (*store.GenerationRequest, error) {
	if m.getRequestResp == nil && m.getRequestErr == nil {
		return nil, sql.ErrNoRows
	}
	return m.getRequestResp, m.getRequestErr
}

func (m *mockStore) ListRequests(ctx context.Context, tenantID uuid.UUID, status *store.RequestStatus, limit, offset int) ([]store.GenerationRequest, error) {
	return m.listRequestsResp, m.listRequestsErr
}

func (m *mockStore) CountPending(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockStore) GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*store.Template, error) {
	if m.getTemplateResp == nil && m.getTemplateErr == nil {
		return nil, sql.ErrNoRows
	}
	return m.getTemplateResp, m.getTemplateErr
}

func (m *mockStore) GetVariant(ctx context.Context, variantID uuid.UUID) (*store.Variant, error) {
	if m.getVariantResp == nil && m.getVariantErr == nil {
		return nil, sql.ErrNoRows
	}
	return m.getVariantResp, m.getVariantErr
}

func (m *mockStore) ListVariants(ctx context.Context, templateID uuid.UUID) ([]store.Variant, error) {
	return m.listVariantsResp, nil
}

func (m *mockStore) GetVersion(ctx context.Context, versionID uuid.UUID) (*store.Version, error) {
	if m.getVersionResp == nil && m.getVersionErr == nil {
		return nil, sql.ErrNoRows
	}
	return m.getVersionResp, m.getVersionErr
}

func (m *mockStore) GetActiveVersion(ctx context.Context, variantID uuid.UUID, environment string) (*store.Version, error) {
	if m.getActiveVersionResp == nil && m.getActiveVersionErr == nil {
		return nil, sql.ErrNoRows
	}
	return m.getActiveVersionResp, m.getActiveVersionErr
}

func (m *mockStore) GetTheme(ctx context.Context, themeID uuid.UUID) (*store.Theme, error) {
	if m.getThemeResp == nil && m.getThemeErr == nil {
		return nil, sql.ErrNoRows
	}
	return m.getThemeResp, m.getThemeErr
}

func (m *mockStore) CreateDocument(ctx context.Context, doc *store.Document) error { return nil }

func (m *mockStore) GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*store.Document, error) {
	if m.getDocumentResp == nil && m.getDocumentErr == nil {
		return nil, sql.ErrNoRows
	}
	return m.getDocumentResp, m.getDocumentErr
}

func (m *mockStore) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter store.DocumentFilter, limit, offset int) ([]store.Document, error) {
	return m.listDocumentsResp, m.listDocumentsErr
}

func (m *mockStore) DeleteDocument(ctx context.Context, tenantID, documentID uuid.UUID) (bool, error) {
	return m.deleteDocumentResp, m.deleteDocumentErr
}

// newTestHandlers wires a Handlers instance around the mock store.
func newTestHandlers(m *mockStore) *Handlers {
	svc := generation.NewService(m, contentstore.NewMemory())
	return New(m, svc)
}

// seedMockTemplate configures the mock so a default-variant submission
// against "production" validates cleanly. Returns the template id.
func seedMockTemplate(m *mockStore) uuid.UUID {
	templateID := uuid.New()
	variantID := uuid.New()
	versionID := uuid.New()
	m.getTemplateResp = &store.Template{
		ID:               templateID,
		DefaultVariantID: &variantID,
	}
	m.getVariantResp = &store.Variant{ID: variantID, TemplateID: templateID}
	m.getActiveVersionResp = &store.Version{ID: versionID, VariantID: variantID}
	return templateID
}

// requestWithTenant attaches an authenticated tenant to a test request.
func requestWithTenant(r *http.Request, tenantID uuid.UUID) *http.Request {
	tenant := &store.Tenant{ID: tenantID, Name: "acme"}
	return r.WithContext(middleware.ContextWithTenant(r.Context(), tenant))
}
