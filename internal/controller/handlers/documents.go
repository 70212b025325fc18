package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"epistola/internal/controller/middleware"
	"epistola/internal/store"
	"epistola/pkg/api"
)

// GetDocument handles GET /documents/{id}.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	doc, err := h.svc.GetDocument(ctx, tenant.ID, documentID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, toDocumentResponse(doc))
}

// GetDocumentContent handles GET /documents/{id}/content.
// It streams the stored bytes with the recorded content type.
func (h *Handlers) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	doc, data, err := h.svc.GetDocumentContent(ctx, tenant.ID, documentID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListDocuments handles GET /documents?template_id=&correlation_id=.
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var filter store.DocumentFilter
	if v := r.URL.Query().Get("template_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.httpError(w, "Invalid template id", http.StatusBadRequest)
			return
		}
		filter.TemplateID = &id
	}
	if v := r.URL.Query().Get("correlation_id"); v != "" {
		filter.CorrelationID = &v
	}
	limit, offset := pagination(r)

	docs, err := h.svc.ListDocuments(ctx, tenant.ID, filter, limit, offset)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := api.ListDocumentsResponse{Documents: make([]api.DocumentResponse, len(docs))}
	for i := range docs {
		resp.Documents[i] = toDocumentResponse(&docs[i])
	}
	h.respondJson(w, http.StatusOK, resp)
}

// DeleteDocument handles DELETE /documents/{id}.
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	deleted, err := h.svc.DeleteDocument(ctx, tenant.ID, documentID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if !deleted {
		h.httpError(w, "Not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toDocumentResponse(doc *store.Document) api.DocumentResponse {
	return api.DocumentResponse{
		ID:            doc.ID.String(),
		TemplateID:    doc.TemplateID.String(),
		RequestID:     doc.RequestID.String(),
		Filename:      doc.Filename,
		CorrelationID: doc.CorrelationID,
		ContentType:   doc.ContentType,
		Size:          doc.Size,
		CreatedAt:     doc.CreatedAt,
	}
}
