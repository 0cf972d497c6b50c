package ocr

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/infrastructure/resilience"
)

type memoryStorage struct {
	files map[string][]byte
}

func (s *memoryStorage) Save(_ context.Context, key string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[key] = content
	return nil
}

func (s *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.files[key])), nil
}

func newTestExecutor() *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = false
	return resilience.NewExecutor(cfg)
}

func TestExtractDecodesFieldsAndCorrectedType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("documentType"); got != string(domain.DocTypeOtherTaxDocument) {
			t.Fatalf("documentType = %q", got)
		}
		_, _ = w.Write([]byte(`{
			"documentType": "W2",
			"extractedFields": {
				"employeeName": "Jane Doe",
				"wages": "$55,000.00",
				"federalTaxWithheld": 8250.5
			},
			"fullText": "Form W-2 Wage and Tax Statement"
		}`))
	}))
	defer server.Close()

	storage := &memoryStorage{files: map[string][]byte{"ret-1/w2.pdf": []byte("pdf bytes")}}
	client := New(server.URL, storage, newTestExecutor())

	result, err := client.Extract(context.Background(), &domain.Document{
		ID:          "doc-1",
		FileName:    "w2.pdf",
		StoragePath: "ret-1/w2.pdf",
		Type:        domain.DocTypeOtherTaxDocument,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.CorrectedType != domain.DocTypeW2 {
		t.Fatalf("CorrectedType = %q, want W2", result.CorrectedType)
	}
	if result.Fields.EmployeeName != "Jane Doe" {
		t.Fatalf("EmployeeName = %q", result.Fields.EmployeeName)
	}
	if got := result.Fields.Wages.StringFixed(2); got != "55000.00" {
		t.Fatalf("Wages = %s, want 55000.00", got)
	}
	if result.FullText == "" {
		t.Fatalf("expected full text")
	}
}

func TestExtractWrapsRetryableFailureAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ocr backend overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	storage := &memoryStorage{files: map[string][]byte{"k": []byte("x")}}
	client := New(server.URL, storage, newTestExecutor())

	_, err := client.Extract(context.Background(), &domain.Document{
		ID: "doc-1", FileName: "w2.pdf", StoragePath: "k", Type: domain.DocTypeW2,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if !strings.Contains(err.Error(), "ocr backend overloaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
