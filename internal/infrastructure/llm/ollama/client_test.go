package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mpetrenko/taxmate/internal/core/ports"
	"github.com/mpetrenko/taxmate/internal/infrastructure/resilience"
)

func newTestExecutor() *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = false
	return resilience.NewExecutor(cfg)
}

func TestClassifyStateParsesJSONModeResponse(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["format"] != "json" {
			t.Fatalf("expected json format, got %v", payload["format"])
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"{\"state\":\"ca\",\"confidence\":0.7,\"reasoning\":\"employer address\"}"}`))
	}))
	defer server.Close()

	classifier := NewStateClassifier(New(server.URL, "llama3"), newTestExecutor())
	result, err := classifier.ClassifyState(context.Background(), ports.StateClassifierRequest{
		FullText:  "Form W-2 issued by Acme Corp, Los Angeles",
		Addresses: []string{"1 Acme Way, Los Angeles"},
	})
	if err != nil {
		t.Fatalf("ClassifyState() error = %v", err)
	}
	if result.State != "CA" {
		t.Fatalf("State = %q, want CA", result.State)
	}
	if result.Confidence != 0.7 {
		t.Fatalf("Confidence = %v, want 0.7", result.Confidence)
	}
	if !strings.Contains(capturedPrompt, "1 Acme Way") {
		t.Fatalf("expected address in prompt: %s", capturedPrompt)
	}
}

func TestClassifyStateIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	classifier := NewStateClassifier(New(server.URL, "llama3"), newTestExecutor())
	_, err := classifier.ClassifyState(context.Background(), ports.StateClassifierRequest{FullText: "text"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
