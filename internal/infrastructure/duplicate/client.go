package duplicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/infrastructure/resilience"
)

// Client asks the external duplicate-detection service whether a freshly
// extracted document matches one already on the return. The verdict is
// advisory; callers treat checker failures as "no duplicate found".
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

type checkRequest struct {
	DocumentID   string       `json:"documentId"`
	TaxReturnID  string       `json:"taxReturnId"`
	DocumentType string       `json:"documentType"`
	FileName     string       `json:"fileName"`
	Fields       *checkFields `json:"fields,omitempty"`
}

type checkFields struct {
	EmployerName string `json:"employerName,omitempty"`
	EmployerEIN  string `json:"employerEin,omitempty"`
	PayerName    string `json:"payerName,omitempty"`
	PayerTIN     string `json:"payerTin,omitempty"`
	Wages        string `json:"wages,omitempty"`
}

type checkResponse struct {
	IsDuplicate       bool              `json:"isDuplicate"`
	Confidence        float64           `json:"confidence"`
	MatchingDocuments []string          `json:"matchingDocuments"`
	MatchCriteria     map[string]string `json:"matchCriteria"`
}

func (c *Client) Check(ctx context.Context, doc *domain.Document) (domain.DuplicateVerdict, error) {
	payload := checkRequest{
		DocumentID:   doc.ID,
		TaxReturnID:  doc.TaxReturnID,
		DocumentType: string(doc.Type),
		FileName:     doc.FileName,
	}
	if doc.Extracted != nil {
		payload.Fields = &checkFields{
			EmployerName: doc.Extracted.EmployerName,
			EmployerEIN:  doc.Extracted.EmployerEIN,
			PayerName:    doc.Extracted.PayerName,
			PayerTIN:     doc.Extracted.PayerTIN,
			Wages:        doc.Extracted.Wages.String(),
		}
	}

	var response checkResponse
	err := c.executor.Execute(ctx, "duplicate_check", func(ctx context.Context) error {
		return c.checkOnce(ctx, payload, &response)
	}, classifyCheckerError)
	if err != nil {
		return domain.DuplicateVerdict{}, domain.WrapError(domain.ErrDuplicateDetection, "duplicate check", err)
	}

	return domain.DuplicateVerdict{
		IsDuplicate:       response.IsDuplicate,
		Confidence:        response.Confidence,
		MatchingDocuments: response.MatchingDocuments,
		MatchCriteria:     response.MatchCriteria,
	}, nil
}

func (c *Client) checkOnce(ctx context.Context, payload checkRequest, out *checkResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/check", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("duplicate check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{status: resp.Status, statusCode: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode check response: %w", err)
	}
	return nil
}

type statusError struct {
	status     string
	statusCode int
	body       string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("duplicate check status: %s", e.status)
	}
	return fmt.Sprintf("duplicate check status: %s: %s", e.status, e.body)
}

func classifyCheckerError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.statusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
