package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

type fakeUploader struct {
	doc *domain.Document
	err error
	req ports.UploadRequest
}

func (f *fakeUploader) Upload(_ context.Context, req ports.UploadRequest) (*domain.Document, error) {
	f.req = req
	return f.doc, f.err
}

type fakeProcessor struct {
	result *domain.ProcessingResult
	err    error
}

func (f *fakeProcessor) Process(context.Context, string, string) (*domain.ProcessingResult, error) {
	return f.result, f.err
}

type fakeMonitor struct {
	events []domain.ProcessingEvent
	err    error
}

func (f *fakeMonitor) Watch(context.Context, string, string) (<-chan domain.ProcessingEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan domain.ProcessingEvent, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

type fakeReader struct {
	ret *domain.TaxReturn
	err error
}

func (f *fakeReader) GetReturn(context.Context, string, string) (*domain.TaxReturn, error) {
	return f.ret, f.err
}
func (f *fakeReader) ListDocuments(context.Context, string, string) ([]domain.Document, error) {
	return nil, f.err
}
func (f *fakeReader) ListValidIncome(context.Context, string, string) (*ports.IncomeOverview, error) {
	return &ports.IncomeOverview{}, f.err
}

type fakeMaintenance struct {
	deleteErr error
}

func (f *fakeMaintenance) DeleteDocument(context.Context, string, string) error {
	return f.deleteErr
}
func (f *fakeMaintenance) CleanupAndRecalculate(context.Context, string, string) (*ports.CleanupReport, error) {
	return &ports.CleanupReport{}, nil
}
func (f *fakeMaintenance) ResolveDuplicate(context.Context, string, string, domain.DuplicateResolution) (*domain.ProcessingResult, error) {
	return nil, nil
}

type fakeDocs struct {
	doc *domain.Document
	err error
}

func (f *fakeDocs) Create(context.Context, *domain.Document) error { return nil }
func (f *fakeDocs) GetByID(context.Context, string) (*domain.Document, error) {
	return f.doc, f.err
}
func (f *fakeDocs) ListByReturn(context.Context, string) ([]domain.Document, error) {
	return nil, nil
}
func (f *fakeDocs) ClaimProcessing(context.Context, string) error                 { return nil }
func (f *fakeDocs) MarkCompleted(context.Context, *domain.Document) error         { return nil }
func (f *fakeDocs) MarkFailed(context.Context, string, string) error              { return nil }
func (f *fakeDocs) UpdateType(context.Context, string, domain.DocumentType) error { return nil }
func (f *fakeDocs) Delete(context.Context, string) error                          { return nil }

type fakeExporter struct{}

func (fakeExporter) Export(*domain.TaxReturn, []domain.IncomeEntry) ([]byte, error) {
	return []byte("xlsx"), nil
}

func newTestRouter(t *testing.T, opts ...func(*Router)) http.Handler {
	t.Helper()
	rt := NewRouter(
		&fakeUploader{doc: &domain.Document{ID: "doc-1", Status: domain.StatusPending}},
		&fakeProcessor{result: &domain.ProcessingResult{}},
		&fakeMonitor{},
		&fakeReader{ret: &domain.TaxReturn{ID: "ret-1"}},
		&fakeMaintenance{},
		&fakeDocs{doc: &domain.Document{ID: "doc-1", TaxReturnID: "ret-1"}},
		fakeExporter{},
		nil,
		false,
	)
	for _, opt := range opts {
		opt(rt)
	}
	return rt.Handler()
}

func TestUploadDocumentAccepted(t *testing.T) {
	uploader := &fakeUploader{doc: &domain.Document{ID: "doc-1", Status: domain.StatusPending}}
	handler := newTestRouter(t, func(rt *Router) { rt.uploader = uploader })

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "w2.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("pdf bytes"))
	_ = writer.WriteField("documentType", "W2")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/returns/ret-1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-Id", "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", res.Code, res.Body.String())
	}
	if uploader.req.DeclaredType != domain.DocTypeW2 {
		t.Fatalf("DeclaredType = %q", uploader.req.DeclaredType)
	}
	if uploader.req.TaxReturnID != "ret-1" {
		t.Fatalf("TaxReturnID = %q", uploader.req.TaxReturnID)
	}
}

func TestMissingUserHeaderIsUnauthorized(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/returns/ret-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}

func TestProcessConflictCarriesCategoryAndSupportReference(t *testing.T) {
	conflict := domain.WrapError(domain.ErrConflict, "claim document", errors.New("document doc-1 is PROCESSING"))
	handler := newTestRouter(t, func(rt *Router) {
		rt.processor = &fakeProcessor{err: conflict}
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/process", nil)
	req.Header.Set("X-User-Id", "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", res.Code, res.Body.String())
	}

	var body errorBody
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "CONFLICT" {
		t.Fatalf("code = %q, want CONFLICT", body.Code)
	}
	if body.SupportReference == "" {
		t.Fatalf("expected support reference")
	}
	if strings.Contains(body.Error, "PROCESSING") {
		t.Fatalf("raw internals leaked into user message: %q", body.Error)
	}
}

func TestStreamEventsWritesSSEFrames(t *testing.T) {
	handler := newTestRouter(t, func(rt *Router) {
		rt.monitor = &fakeMonitor{events: []domain.ProcessingEvent{
			{Type: domain.EventConnected, DocumentID: "doc-1"},
			{Type: domain.EventCompleted, DocumentID: "doc-1", Status: domain.StatusCompleted},
		}}
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/events", nil)
	req.Header.Set("X-User-Id", "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}

	frames := strings.Split(strings.TrimSpace(res.Body.String()), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2: %q", len(frames), res.Body.String())
	}
	for _, frame := range frames {
		if !strings.HasPrefix(frame, "data: ") {
			t.Fatalf("frame missing data prefix: %q", frame)
		}
	}

	var last domain.ProcessingEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &last); err != nil {
		t.Fatalf("decode last frame: %v", err)
	}
	if last.Type != domain.EventCompleted {
		t.Fatalf("last event type = %q", last.Type)
	}
}

func TestRateLimitReturns429WithRetryAfter(t *testing.T) {
	handler := newTestRouter(t, func(rt *Router) {
		rt.traffic = NewTrafficControl(1, 1, 4, 50*time.Millisecond)
	})

	req1 := httptest.NewRequest(http.MethodGet, "/v1/returns/ret-1", nil)
	req1.Header.Set("X-User-Id", "user-1")
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/v1/returns/ret-1", nil)
	req2.Header.Set("X-User-Id", "user-1")
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}
