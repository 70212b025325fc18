package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"epistola/pkg/api"
)

// Client handles API calls to the epistola controller.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client with the given base URL and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *Client) do(method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func decode(resp *http.Response, out interface{}, okStatuses ...int) error {
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	ok := false
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Submit sends POST /requests to enqueue a single generation request.
func (c *Client) Submit(req api.SubmitRequest) (*api.SubmitResponse, error) {
	resp, err := c.do(http.MethodPost, "/requests", req)
	if err != nil {
		return nil, err
	}
	var result api.SubmitResponse
	if err := decode(resp, &result, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitBatch sends POST /batches to enqueue a batch of requests.
func (c *Client) SubmitBatch(req api.SubmitBatchRequest) (*api.SubmitBatchResponse, error) {
	resp, err := c.do(http.MethodPost, "/batches", req)
	if err != nil {
		return nil, err
	}
	var result api.SubmitBatchResponse
	if err := decode(resp, &result, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRequest sends GET /requests/{id} to retrieve request details.
func (c *Client) GetRequest(requestID string) (*api.RequestResponse, error) {
	resp, err := c.do(http.MethodGet, "/requests/"+url.PathEscape(requestID), nil)
	if err != nil {
		return nil, err
	}
	var result api.RequestResponse
	if err := decode(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// Cancel sends POST /requests/{id}/cancel.
func (c *Client) Cancel(requestID string) (*api.CancelResponse, error) {
	resp, err := c.do(http.MethodPost, "/requests/"+url.PathEscape(requestID)+"/cancel", nil)
	if err != nil {
		return nil, err
	}
	var result api.CancelResponse
	if err := decode(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListDocuments sends GET /documents with optional filters.
func (c *Client) ListDocuments(templateID, correlationID string) ([]api.DocumentResponse, error) {
	q := url.Values{}
	if templateID != "" {
		q.Set("template_id", templateID)
	}
	if correlationID != "" {
		q.Set("correlation_id", correlationID)
	}
	path := "/documents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var result api.ListDocumentsResponse
	if err := decode(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Documents, nil
}

// GetDocument sends GET /documents/{id}.
func (c *Client) GetDocument(documentID string) (*api.DocumentResponse, error) {
	resp, err := c.do(http.MethodGet, "/documents/"+url.PathEscape(documentID), nil)
	if err != nil {
		return nil, err
	}
	var result api.DocumentResponse
	if err := decode(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDocumentContent sends GET /documents/{id}/content and returns the bytes.
func (c *Client) GetDocumentContent(documentID string) ([]byte, error) {
	resp, err := c.do(http.MethodGet, "/documents/"+url.PathEscape(documentID)+"/content", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return io.ReadAll(resp.Body)
}
