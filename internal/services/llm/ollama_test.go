package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"iconsort/internal/services"
)

func TestOllamaCompleteSendsImageAndKnobs(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": ` {"category":"navigation"} `},
			"done":    true,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(Options{
		Model:       "llava",
		BaseURL:     server.URL + "/",
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   300,
		ForceJSON:   true,
	})
	text, err := client.Complete(context.Background(), VisionRequest{
		System: "Respond with JSON only.",
		Prompt: "Classify this icon.",
		Image:  []byte{0x89, 'P', 'N', 'G'},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != `{"category":"navigation"}` {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Stream || got.Format != "json" || got.Model != "llava" {
		t.Fatalf("unexpected request envelope: %+v", got)
	}
	if got.Options.NumPredict != 300 || got.Options.TopP != 0.9 {
		t.Fatalf("unexpected options: %+v", got.Options)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("expected system then user message, got %+v", got.Messages)
	}
	if len(got.Messages[1].Images) != 1 || got.Messages[1].Images[0] != encodeBase64([]byte{0x89, 'P', 'N', 'G'}) {
		t.Fatalf("image not attached: %+v", got.Messages[1])
	}
}

func TestOllamaEmptyReplyIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":""},"done":true}`))
	}))
	defer server.Close()

	text, err := NewOllamaClient(Options{Model: "llava", BaseURL: server.URL}).Complete(context.Background(), VisionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestOllamaErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		marker    error
		remediate string
	}{
		{name: "missing model", status: http.StatusNotFound, body: `{"error":"model 'llava' not found"}`, marker: services.ErrConfiguration, remediate: "ollama pull llava"},
		{name: "busy", status: http.StatusServiceUnavailable, body: `{"error":"server busy"}`, marker: services.ErrTransient, remediate: "reduce concurrency"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, marker: services.ErrTransient},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":"invalid image"}`, marker: services.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewOllamaClient(Options{Model: "llava", BaseURL: server.URL}).Complete(context.Background(), VisionRequest{Prompt: "x"})
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
			if tc.remediate != "" && !strings.Contains(strings.Join(services.Remediation(err), "\n"), tc.remediate) {
				t.Fatalf("expected remediation %q, got %v", tc.remediate, services.Remediation(err))
			}
		})
	}
}

func TestOllamaRetryAfterHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewOllamaClient(Options{Model: "llava", BaseURL: server.URL}).Complete(context.Background(), VisionRequest{Prompt: "x"})
	var hinted interface{ RetryAfter() time.Duration }
	if !errors.As(err, &hinted) || hinted.RetryAfter() != 3*time.Second {
		t.Fatalf("expected 3s retry hint, got %v", err)
	}
}

func TestOllamaUnreachableIsFatal(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewOllamaClient(Options{Model: "llava", BaseURL: url}).Complete(context.Background(), VisionRequest{Prompt: "x"})
	if !services.IsFatal(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(strings.Join(services.Remediation(err), "\n"), "check backend reachable") {
		t.Fatalf("missing remediation: %v", services.Remediation(err))
	}
}

func TestOllamaSlowResponseIsTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewOllamaClient(Options{Model: "llava", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), VisionRequest{Prompt: "x"})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatalf("timeouts should be retryable: %v", err)
	}
}

func TestOllamaHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llava:latest","model":"llava:latest"},{"name":"qwen2.5vl:7b"}]}`))
	}))
	defer server.Close()

	if err := NewOllamaClient(Options{Model: "llava", BaseURL: server.URL}).HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected llava to match llava:latest: %v", err)
	}
	if err := NewOllamaClient(Options{Model: "qwen2.5vl:7b", BaseURL: server.URL}).HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected exact tag match: %v", err)
	}
	err := NewOllamaClient(Options{Model: "bakllava", BaseURL: server.URL}).HealthCheck(context.Background())
	if !services.IsFatal(err) {
		t.Fatalf("expected missing model to be fatal, got %v", err)
	}
}
