package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"epistola/internal/auth"
	"epistola/internal/store"
)

type mockTenantStore struct {
	tenants map[string]*store.Tenant // key hash -> tenant
}

func (m *mockTenantStore) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	return nil
}

func (m *mockTenantStore) GetTenantByID(ctx context.Context, id uuid.UUID) (*store.Tenant, error) {
	return nil, sql.ErrNoRows
}

func (m *mockTenantStore) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	tenant, ok := m.tenants[hash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return tenant, nil
}

func TestAuthMiddleware_ValidKey(t *testing.T) {
	rawKey := "ep_test_key"
	tenant := &store.Tenant{ID: uuid.New(), Name: "acme"}
	s := &mockTenantStore{tenants: map[string]*store.Tenant{auth.HashKey(rawKey): tenant}}

	var seen *store.Tenant
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	rec := httptest.NewRecorder()

	AuthMiddleware(s)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.ID != tenant.ID {
		t.Errorf("handler did not receive the authenticated tenant")
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	s := &mockTenantStore{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without credentials")
	})

	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	rec := httptest.NewRecorder()

	AuthMiddleware(s)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_UnknownKey(t *testing.T) {
	s := &mockTenantStore{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for unknown key")
	})

	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	req.Header.Set("Authorization", "Bearer ep_bogus")
	rec := httptest.NewRecorder()

	AuthMiddleware(s)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_WrongScheme(t *testing.T) {
	s := &mockTenantStore{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for non-bearer auth")
	})

	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	AuthMiddleware(s)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
