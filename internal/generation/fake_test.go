package generation

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"epistola/internal/store"
)

// fakeStore is an in-memory Store used by the service and poller tests.
// Batch submissions buffer their rows in a fakeTx and apply them on
// Commit, and ClaimBatch performs the PENDING -> IN_PROGRESS transition
// under the same lock that guards the map, so claim-exclusivity tests
// exercise real contention.
type fakeStore struct {
	mu        sync.Mutex
	batches   map[uuid.UUID]*store.Batch
	requests  map[uuid.UUID]*store.GenerationRequest
	templates map[uuid.UUID]*store.Template
	variants  map[uuid.UUID]*store.Variant
	versions  map[uuid.UUID]*store.Version
	active    map[string]uuid.UUID // variantID/environment -> versionID
	themes    map[uuid.UUID]*store.Theme
	documents map[uuid.UUID]*store.Document
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		batches:   map[uuid.UUID]*store.Batch{},
		requests:  map[uuid.UUID]*store.GenerationRequest{},
		templates: map[uuid.UUID]*store.Template{},
		variants:  map[uuid.UUID]*store.Variant{},
		versions:  map[uuid.UUID]*store.Version{},
		active:    map[string]uuid.UUID{},
		themes:    map[uuid.UUID]*store.Theme{},
		documents: map[uuid.UUID]*store.Document{},
	}
}

type fakeTx struct {
	parent    *fakeStore
	batches   []*store.Batch
	requests  []*store.GenerationRequest
	committed bool
}

func (t *fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	for _, b := range t.batches {
		cp := *b
		t.parent.batches[b.ID] = &cp
	}
	for _, r := range t.requests {
		cp := *r
		t.parent.requests[r.ID] = &cp
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.committed {
		return sql.ErrTxDone
	}
	t.batches = nil
	t.requests = nil
	return nil
}

func (f *fakeStore) BeginTx(context.Context) (store.Tx, error) {
	return &fakeTx{parent: f}, nil
}

func (f *fakeStore) CreateBatch(_ context.Context, tx store.DBTransaction, batch *store.Batch) error {
	if t, ok := tx.(*fakeTx); ok {
		t.batches = append(t.batches, batch)
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *batch
	f.batches[batch.ID] = &cp
	return nil
}

func (f *fakeStore) CreateRequest(_ context.Context, tx store.DBTransaction, req *store.GenerationRequest) error {
	if t, ok := tx.(*fakeTx); ok {
		t.requests = append(t.requests, req)
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeStore) ClaimBatch(_ context.Context, instanceID string, limit int) ([]store.GenerationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pending []*store.GenerationRequest
	for _, r := range f.requests {
		if r.Status == store.StatusPending {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	now := time.Now().UTC()
	var claimed []store.GenerationRequest
	for _, r := range pending {
		r.Status = store.StatusInProgress
		r.ClaimedBy = &instanceID
		r.ClaimedAt = &now
		r.StartedAt = &now
		claimed = append(claimed, *r)
	}
	return claimed, nil
}

func (f *fakeStore) CompleteRequest(_ context.Context, requestID, documentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok || r.Status != store.StatusInProgress {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	r.Status = store.StatusCompleted
	r.DocumentID = &documentID
	r.CompletedAt = &now
	return nil
}

func (f *fakeStore) FailRequest(_ context.Context, requestID uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok || r.Status != store.StatusInProgress {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	r.Status = store.StatusFailed
	r.ErrorMessage = &errMsg
	r.CompletedAt = &now
	return nil
}

func (f *fakeStore) CancelRequest(_ context.Context, tenantID, requestID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok || r.TenantID != tenantID || r.Status.Terminal() {
		return false, nil
	}
	now := time.Now().UTC()
	r.Status = store.StatusCancelled
	r.CompletedAt = &now
	return true, nil
}

func (f *fakeStore) GetRequest(_ context.Context, tenantID, requestID uuid.UUID) (*store.GenerationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok || r.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListRequests(_ context.Context, tenantID uuid.UUID, status *store.RequestStatus, limit, offset int) ([]store.GenerationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.GenerationRequest
	for _, r := range f.requests {
		if r.TenantID != tenantID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) CountPending(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.requests {
		if r.Status == store.StatusPending {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, tenantID, templateID uuid.UUID) (*store.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[templateID]
	if !ok || t.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetVariant(_ context.Context, variantID uuid.UUID) (*store.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) ListVariants(_ context.Context, templateID uuid.UUID) ([]store.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Variant
	for _, v := range f.variants {
		if v.TemplateID == templateID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeStore) GetVersion(_ context.Context, versionID uuid.UUID) (*store.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[versionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) GetActiveVersion(_ context.Context, variantID uuid.UUID, environment string) (*store.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[variantID.String()+"/"+environment]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v, ok := f.versions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) GetTheme(_ context.Context, themeID uuid.UUID) (*store.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.themes[themeID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *store.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.documents[doc.ID] = &cp
	return nil
}

func (f *fakeStore) GetDocument(_ context.Context, tenantID, documentID uuid.UUID) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[documentID]
	if !ok || d.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) ListDocuments(_ context.Context, tenantID uuid.UUID, filter store.DocumentFilter, limit, offset int) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Document
	for _, d := range f.documents {
		if d.TenantID != tenantID {
			continue
		}
		if filter.TemplateID != nil && d.TemplateID != *filter.TemplateID {
			continue
		}
		if filter.CorrelationID != nil && (d.CorrelationID == nil || *d.CorrelationID != *filter.CorrelationID) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, tenantID, documentID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[documentID]
	if !ok || d.TenantID != tenantID {
		return false, nil
	}
	delete(f.documents, documentID)
	return true, nil
}

// seedTemplate installs a template with one default variant and a version
// whose graph is a single text node bound to the "name" path. Returns the
// ids the tests address things by.
func (f *fakeStore) seedTemplate(tenantID uuid.UUID) (templateID, variantID, versionID uuid.UUID) {
	templateID = uuid.New()
	variantID = uuid.New()
	versionID = uuid.New()

	graph := []byte(`{
		"root": "root",
		"nodes": {
			"root": {
				"type": "text",
				"props": {"spans": [{"text": "Hello "}, {"expr": {"raw": "name", "language": "path"}}]}
			}
		}
	}`)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[templateID] = &store.Template{
		ID:               templateID,
		TenantID:         tenantID,
		Name:             "letter",
		DefaultVariantID: &variantID,
		CreatedAt:        time.Now().UTC(),
	}
	f.variants[variantID] = &store.Variant{
		ID:         variantID,
		TemplateID: templateID,
		Attributes: map[string]string{"language": "en"},
		Position:   0,
	}
	f.versions[versionID] = &store.Version{
		ID:        versionID,
		VariantID: variantID,
		Number:    1,
		Graph:     graph,
		ThemeRef:  store.ThemeRefInherit,
	}
	f.active[variantID.String()+"/production"] = versionID
	return templateID, variantID, versionID
}
