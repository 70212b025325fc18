// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import (
	"encoding/json"
	"time"
)

// CreateTenantRequest is the request body for creating a new tenant.
type CreateTenantRequest struct {
	Name string `json:"name"`
}

// CreateTenantResponse is the response body after creating a tenant.
type CreateTenantResponse struct {
	ID     string `json:"tenant_id"`
	Name   string `json:"name"`
	ApiKey string `json:"api_key"`
}

// VariantCriteria selects a template variant by attribute matching.
type VariantCriteria struct {
	Required map[string]string `json:"required,omitempty"`
	Optional map[string]string `json:"optional,omitempty"`
}

// SubmitRequest is the request body for submitting one generation request.
// Exactly one of version_id and environment must be set. variant_id and
// variant_criteria are mutually exclusive; omitting both selects the
// template's default variant.
type SubmitRequest struct {
	TemplateID      string           `json:"template_id"`
	VariantID       *string          `json:"variant_id,omitempty"`
	VariantCriteria *VariantCriteria `json:"variant_criteria,omitempty"`
	VersionID       *string          `json:"version_id,omitempty"`
	Environment     *string          `json:"environment,omitempty"`
	Data            json.RawMessage  `json:"data,omitempty"`
	Filename        *string          `json:"filename,omitempty"`
	CorrelationID   *string          `json:"correlation_id,omitempty"`
}

// SubmitResponse is the response body after submitting a single request.
type SubmitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// SubmitBatchRequest is the request body for submitting a batch.
type SubmitBatchRequest struct {
	Items []SubmitRequest `json:"items"`
}

// SubmitBatchResponse is the response body after submitting a batch.
type SubmitBatchResponse struct {
	BatchID string `json:"batch_id"`
	Count   int    `json:"count"`
}

// RequestResponse represents a generation request in API responses.
type RequestResponse struct {
	ID            string     `json:"id"`
	BatchID       *string    `json:"batch_id,omitempty"`
	TemplateID    string     `json:"template_id"`
	VariantID     string     `json:"variant_id"`
	VersionID     *string    `json:"version_id,omitempty"`
	Environment   *string    `json:"environment,omitempty"`
	Status        string     `json:"status"`
	DocumentID    *string    `json:"document_id,omitempty"`
	CorrelationID *string    `json:"correlation_id,omitempty"`
	Error         *string    `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ListRequestsResponse is the response body for listing requests.
type ListRequestsResponse struct {
	Requests []RequestResponse `json:"requests"`
}

// CancelResponse reports the outcome of a cancel call.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// DocumentResponse represents a rendered document's metadata.
type DocumentResponse struct {
	ID            string    `json:"id"`
	TemplateID    string    `json:"template_id"`
	RequestID     string    `json:"request_id"`
	Filename      string    `json:"filename"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListDocumentsResponse is the response body for listing documents.
type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}
