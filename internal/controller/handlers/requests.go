package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"epistola/internal/controller/middleware"
	"epistola/internal/generation"
	"epistola/internal/store"
	"epistola/pkg/api"
)

// SubmitRequest handles POST /requests.
// It validates the submission and enqueues a single PENDING request.
func (h *Handlers) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := toSubmitItem(body)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := h.svc.SubmitSingle(ctx, tenant.ID, item)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.SubmitResponse{
		RequestID: req.ID.String(),
		Status:    string(req.Status),
	})
}

// SubmitBatch handles POST /batches.
// All items are validated up front; nothing is enqueued when any item fails.
func (h *Handlers) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body api.SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]generation.SubmitItem, len(body.Items))
	for i, b := range body.Items {
		item, err := toSubmitItem(b)
		if err != nil {
			h.httpError(w, fmt.Sprintf("item %d: %s", i, err), http.StatusBadRequest)
			return
		}
		items[i] = item
	}

	batchID, err := h.svc.SubmitBatch(ctx, tenant.ID, items)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.SubmitBatchResponse{
		BatchID: batchID.String(),
		Count:   len(items),
	})
}

// GetRequest handles GET /requests/{id}.
func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid request id", http.StatusBadRequest)
		return
	}

	req, err := h.svc.GetJob(ctx, tenant.ID, requestID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, toRequestResponse(req))
}

// ListRequests handles GET /requests?status=&limit=&offset=.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var status *store.RequestStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := store.RequestStatus(s)
		status = &st
	}
	limit, offset := pagination(r)

	reqs, err := h.svc.ListJobs(ctx, tenant.ID, status, limit, offset)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := api.ListRequestsResponse{Requests: make([]api.RequestResponse, len(reqs))}
	for i := range reqs {
		resp.Requests[i] = toRequestResponse(&reqs[i])
	}
	h.respondJson(w, http.StatusOK, resp)
}

// CancelRequest handles POST /requests/{id}/cancel.
func (h *Handlers) CancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid request id", http.StatusBadRequest)
		return
	}

	cancelled, err := h.svc.Cancel(ctx, tenant.ID, requestID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.CancelResponse{Cancelled: cancelled})
}

func toSubmitItem(b api.SubmitRequest) (generation.SubmitItem, error) {
	templateID, err := uuid.Parse(b.TemplateID)
	if err != nil {
		return generation.SubmitItem{}, fmt.Errorf("invalid template id %q", b.TemplateID)
	}

	item := generation.SubmitItem{
		TemplateID:    templateID,
		Environment:   b.Environment,
		Data:          b.Data,
		Filename:      b.Filename,
		CorrelationID: b.CorrelationID,
	}
	if b.VariantID != nil {
		id, err := uuid.Parse(*b.VariantID)
		if err != nil {
			return generation.SubmitItem{}, fmt.Errorf("invalid variant id %q", *b.VariantID)
		}
		item.VariantID = &id
	}
	if b.VariantCriteria != nil {
		item.Criteria = &generation.VariantCriteria{
			Required: b.VariantCriteria.Required,
			Optional: b.VariantCriteria.Optional,
		}
	}
	if b.VersionID != nil {
		id, err := uuid.Parse(*b.VersionID)
		if err != nil {
			return generation.SubmitItem{}, fmt.Errorf("invalid version id %q", *b.VersionID)
		}
		item.VersionID = &id
	}
	return item, nil
}

func toRequestResponse(req *store.GenerationRequest) api.RequestResponse {
	resp := api.RequestResponse{
		ID:            req.ID.String(),
		TemplateID:    req.TemplateID.String(),
		VariantID:     req.VariantID.String(),
		Environment:   req.Environment,
		Status:        string(req.Status),
		CorrelationID: req.CorrelationID,
		Error:         req.ErrorMessage,
		CreatedAt:     req.CreatedAt,
		StartedAt:     req.StartedAt,
		CompletedAt:   req.CompletedAt,
	}
	if req.BatchID != nil {
		s := req.BatchID.String()
		resp.BatchID = &s
	}
	if req.VersionID != nil {
		s := req.VersionID.String()
		resp.VersionID = &s
	}
	if req.DocumentID != nil {
		s := req.DocumentID.String()
		resp.DocumentID = &s
	}
	return resp
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
