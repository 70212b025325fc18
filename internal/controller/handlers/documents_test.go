package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"epistola/internal/store"
	"epistola/pkg/api"
)

func TestGetDocument_MapsRow(t *testing.T) {
	tenantID := uuid.New()
	doc := &store.Document{
		ID:          uuid.New(),
		TenantID:    tenantID,
		TemplateID:  uuid.New(),
		RequestID:   uuid.New(),
		Filename:    "invoice.pdf",
		ContentType: "application/pdf",
		Size:        1234,
	}
	m := &mockStore{getDocumentResp: doc}
	h := newTestHandlers(m)

	req := httptest.NewRequest(http.MethodGet, "/documents/"+doc.ID.String(), nil)
	req.SetPathValue("id", doc.ID.String())
	req = requestWithTenant(req, tenantID)
	rec := httptest.NewRecorder()

	h.GetDocument(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp api.DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Filename != "invoice.pdf" || resp.Size != 1234 {
		t.Errorf("unexpected mapping: %+v", resp)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	h := newTestHandlers(&mockStore{})

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
	req.SetPathValue("id", id)
	req = requestWithTenant(req, uuid.New())
	rec := httptest.NewRecorder()

	h.GetDocument(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteDocument_NoContent(t *testing.T) {
	tenantID := uuid.New()
	doc := &store.Document{ID: uuid.New(), TenantID: tenantID, StorageKey: "documents/x/y"}
	m := &mockStore{getDocumentResp: doc, deleteDocumentResp: true}
	h := newTestHandlers(m)

	req := httptest.NewRequest(http.MethodDelete, "/documents/"+doc.ID.String(), nil)
	req.SetPathValue("id", doc.ID.String())
	req = requestWithTenant(req, tenantID)
	rec := httptest.NewRecorder()

	h.DeleteDocument(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestDeleteDocument_Missing(t *testing.T) {
	h := newTestHandlers(&mockStore{})

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
	req.SetPathValue("id", id)
	req = requestWithTenant(req, uuid.New())
	rec := httptest.NewRecorder()

	h.DeleteDocument(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListDocuments_InvalidTemplateFilter(t *testing.T) {
	h := newTestHandlers(&mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/documents?template_id=nope", nil)
	req = requestWithTenant(req, uuid.New())
	rec := httptest.NewRecorder()

	h.ListDocuments(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
