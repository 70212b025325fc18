package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"epistola/pkg/api"

	"github.com/spf13/viper"
)

func TestStatusCommand_Completed(t *testing.T) {
	resetViper()

	createdAt := time.Now().Add(-10 * time.Minute)
	startTime := time.Now().Add(-9 * time.Minute)
	endTime := time.Now().Add(-8 * time.Minute)
	documentID := "doc-42"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "/requests/req-123") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("expected Bearer token, got: %s", r.Header.Get("Authorization"))
		}

		resp := api.RequestResponse{
			ID:          "req-123",
			TemplateID:  "tpl-1",
			VariantID:   "var-1",
			Status:      "COMPLETED",
			DocumentID:  &documentID,
			CreatedAt:   createdAt,
			StartedAt:   &startTime,
			CompletedAt: &endTime,
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "req-123"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "req-123") {
		t.Errorf("expected request ID in output, got: %s", output)
	}
	if !strings.Contains(output, "COMPLETED") {
		t.Errorf("expected COMPLETED status, got: %s", output)
	}
	if !strings.Contains(output, "doc-42") {
		t.Errorf("expected document ID in output, got: %s", output)
	}
	if strings.Contains(output, "Error:") {
		t.Errorf("expected no Error line for completed request, got: %s", output)
	}
}

func TestStatusCommand_FailedShowsError(t *testing.T) {
	resetViper()

	errMsg := "render: unexpected end of JSON input"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := api.RequestResponse{
			ID:         "req-fail",
			TemplateID: "tpl-1",
			VariantID:  "var-1",
			Status:     "FAILED",
			Error:      &errMsg,
			CreatedAt:  time.Now(),
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "req-fail"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "FAILED") {
		t.Errorf("expected FAILED status, got: %s", output)
	}
	if !strings.Contains(output, "unexpected end of JSON input") {
		t.Errorf("expected error message in output, got: %s", output)
	}
}

func TestStatusCommand_NotFound(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "not found"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "nope"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "404") {
		t.Errorf("expected 404 in output, got: %s", output)
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds", time.Now().Add(-30 * time.Second), "30s"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5m"},
		{"hours", time.Now().Add(-3 * time.Hour), "3h"},
		{"one day", time.Now().Add(-25 * time.Hour), "1 day"},
		{"days", time.Now().Add(-72 * time.Hour), "3 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relativeTime(tt.t)
			if got != tt.want {
				t.Errorf("relativeTime() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"milliseconds", 250 * time.Millisecond, "250ms"},
		{"seconds", 1500 * time.Millisecond, "1.5s"},
		{"minutes", 90 * time.Second, "1m 30s"},
		{"hours", 90 * time.Minute, "1h 30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDuration(tt.d)
			if got != tt.want {
				t.Errorf("formatDuration() = %s, want %s", got, tt.want)
			}
		})
	}
}
