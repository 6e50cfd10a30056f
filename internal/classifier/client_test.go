package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func TestClientClassifySuccess(t *testing.T) {
	t.Parallel()

	var gotBody predictRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/predict" {
			t.Errorf("path = %s, want /predict", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"prediction": "Bug Report",
			"confidence": 91.5,
			"all_probabilities": {"Bug Report": 91.5, "Feature Request": 8.5},
			"metadata": {"description": "Technical issues"},
			"processing_time_ms": 12.3
		}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL + "/")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got, err := c.Classify(context.Background(), "The app crashes")
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}

	if gotBody.Feedback != "The app crashes" {
		t.Fatalf("request.feedback = %q, want %q", gotBody.Feedback, "The app crashes")
	}
	if got.Label != "Bug Report" || got.Confidence != 91.5 {
		t.Fatalf("prediction = %+v, want Bug Report @ 91.5", got)
	}
	if got.Probabilities["Feature Request"] != 8.5 {
		t.Fatalf("probabilities = %v", got.Probabilities)
	}
	if got.Description != "Technical issues" {
		t.Fatalf("description = %q", got.Description)
	}
}

func TestClientClassifyPredictionWithoutSuccessFlag(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prediction":"Feature Request","confidence":70}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got, err := c.Classify(context.Background(), "dark mode please")
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	if got.Label != "Feature Request" {
		t.Fatalf("Label = %q, want Feature Request", got.Label)
	}
}

func TestClientClassifyFailureMessages(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		statusCode  int
		body        string
		wantMessage string
		wantStatus  int
	}{
		{
			name:        "server error field wins",
			statusCode:  http.StatusBadRequest,
			body:        `{"error":"Feedback text is required"}`,
			wantMessage: "Feedback text is required",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "synthesized http message",
			statusCode:  http.StatusServiceUnavailable,
			body:        `<html>down</html>`,
			wantMessage: "HTTP 503: Service Unavailable",
			wantStatus:  http.StatusServiceUnavailable,
		},
		{
			name:        "ok without success or prediction",
			statusCode:  http.StatusOK,
			body:        `{"success":false}`,
			wantMessage: "Invalid response from server",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "ok with error and no prediction",
			statusCode:  http.StatusOK,
			body:        `{"success":false,"error":"model not loaded"}`,
			wantMessage: "model not loaded",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "ok with non json body",
			statusCode:  http.StatusOK,
			body:        `not json`,
			wantMessage: "Invalid response from server",
			wantStatus:  http.StatusOK,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			c, err := NewClient(server.URL)
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}

			_, err = c.Classify(context.Background(), "hello there")
			if err == nil {
				t.Fatal("expected error")
			}

			var classifierErr *ClassifierError
			if !errors.As(err, &classifierErr) {
				t.Fatalf("expected ClassifierError, got %T", err)
			}
			if classifierErr.StatusCode != tc.wantStatus {
				t.Fatalf("StatusCode = %d, want %d", classifierErr.StatusCode, tc.wantStatus)
			}
			if got := ErrorMessage(err); got != tc.wantMessage {
				t.Fatalf("ErrorMessage() = %q, want %q", got, tc.wantMessage)
			}
		})
	}
}

func TestClientClassifyDeadlineIsTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true,"prediction":"Bug Report"}`))
	}))
	defer server.Close()

	c, err := NewClientWithResty(server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewClientWithResty() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = c.Classify(ctx, "slow one")
	if !IsTimeout(err) {
		t.Fatalf("IsTimeout() = false, want true (err=%v)", err)
	}
	if got := ErrorMessage(err); got != "Request timeout" {
		t.Fatalf("ErrorMessage() = %q, want Request timeout", got)
	}
}

func TestClientHealth(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		body string
		want HealthStatus
	}{
		{name: "healthy", body: `{"status":"healthy"}`, want: HealthOnline},
		{name: "degraded", body: `{"status":"loading"}`, want: HealthDegraded},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("path = %s, want /health", r.URL.Path)
				}
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			c, err := NewClient(server.URL)
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}

			got, err := c.Health(context.Background())
			if err != nil {
				t.Fatalf("Health() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("Health() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClientHealthOffline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(url)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if got != HealthOffline {
		t.Fatalf("Health() = %s, want OFFLINE", got)
	}
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient("not a url"); err == nil {
		t.Fatal("expected error for invalid base url")
	}
	if _, err := NewClientWithResty("http://localhost:5000", nil); err == nil {
		t.Fatal("expected error for nil resty client")
	}
}
