package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client is the Go SDK for the tax document pipeline. One Client serves one
// authenticated user; it drives upload, processing, live monitoring with a
// polling fallback, and duplicate resolution.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	poll       PollConfig
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithPollConfig(cfg PollConfig) Option {
	return func(c *Client) { c.poll = cfg.normalize() }
}

func New(baseURL, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: &http.Client{Timeout: 0},
		poll:       DefaultPollConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends one document to a return. The server answers before
// processing begins; follow with Process or Monitor.
func (c *Client) Upload(ctx context.Context, taxReturnID, fileName, documentType string, body io.Reader) (*Document, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("copy file payload: %w", err)
	}
	if documentType != "" {
		if err := writer.WriteField("documentType", documentType); err != nil {
			return nil, fmt.Errorf("write document type: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/returns/"+taxReturnID+"/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var doc Document
	if err := c.do(req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Process triggers the synchronous pipeline and returns the comprehensive
// result. The server may answer with one JSON body or with an event stream;
// both are handled. For long documents prefer Monitor, which surfaces
// progress instead of just the final result.
func (c *Client) Process(ctx context.Context, documentID string) (*ProcessingResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/documents/"+documentID+"/process", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return c.resultFromStream(ctx, documentID, resp.Body)
	}

	var result ProcessingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// resultFromStream drains an event-stream answer to the process call until a
// terminal frame, then reads the stored result with a plain JSON request. The
// follow-up pins Accept to application/json so it cannot stream again.
func (c *Client) resultFromStream(ctx context.Context, documentID string, body io.Reader) (*ProcessingResult, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			return nil, fmt.Errorf("parse stream frame: %w", err)
		}
		switch event.Type {
		case "completed":
			req, err := c.newRequest(ctx, http.MethodPost, "/v1/documents/"+documentID+"/process", nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			var result ProcessingResult
			if err := c.do(req, &result); err != nil {
				return nil, err
			}
			return &result, nil
		case "error", "timeout":
			return nil, errors.New(eventErrorMessage(&event))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read process stream: %w", err)
	}
	return nil, errors.New("process stream ended before a terminal event")
}

// GetDocument reads current document state; the poll fallback is built on it.
func (c *Client) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/documents/"+documentID, nil)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := c.do(req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ResolveDuplicate answers a duplicate warning: proceed, cancel, or replace.
func (c *Client) ResolveDuplicate(ctx context.Context, documentID, action string) (*ProcessingResult, error) {
	payload, err := json.Marshal(map[string]string{"action": action})
	if err != nil {
		return nil, fmt.Errorf("marshal resolution: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/documents/"+documentID+"/duplicate-resolution", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result ProcessingResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-User-Id", c.userID)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
	}
	return apiErr
}

// retryableStatus mirrors the server-side taxonomy: transport-level trouble
// and overload answers degrade to polling instead of failing the monitor.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
