package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
	"github.com/mpetrenko/taxmate/internal/infrastructure/resilience"
)

// Client talks to the external OCR/extraction service. The service receives
// the raw file and the declared document type, and answers with a field map,
// the full text, and optionally a corrected document type.
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    ports.ObjectStorage
	executor   *resilience.Executor
}

func New(baseURL string, storage ports.ObjectStorage, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		storage:    storage,
		executor:   executor,
	}
}

type extractResponse struct {
	DocumentType string         `json:"documentType"`
	Fields       map[string]any `json:"extractedFields"`
	FullText     string         `json:"fullText"`
}

func (c *Client) Extract(ctx context.Context, doc *domain.Document) (*ports.ExtractionResult, error) {
	var response extractResponse
	err := c.executor.Execute(ctx, "ocr_extract", func(ctx context.Context) error {
		return c.extractOnce(ctx, doc, &response)
	}, classifyOCRError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ocr extract", err)
	}

	fields := domain.DecodeExtractedFields(response.Fields)
	if fields.FullText == "" {
		fields.FullText = response.FullText
	}

	result := &ports.ExtractionResult{
		Fields:   fields,
		FullText: response.FullText,
	}
	if corrected := domain.ParseDocumentType(response.DocumentType); response.DocumentType != "" && corrected != doc.Type {
		result.CorrectedType = corrected
	}
	return result, nil
}

func (c *Client) extractOnce(ctx context.Context, doc *domain.Document, out *extractResponse) error {
	file, err := c.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return fmt.Errorf("open stored file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", doc.FileName)
	if err != nil {
		return fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy file payload: %w", err)
	}
	if err := writer.WriteField("documentType", string(doc.Type)); err != nil {
		return fmt.Errorf("write document type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", &body)
	if err != nil {
		return fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ocr extract request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newHTTPStatusError("extract", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode extract response: %w", err)
	}
	return nil
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
