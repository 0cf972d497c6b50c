package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
	"github.com/mpetrenko/taxmate/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// StateClassifier is the tier-3 detector: it runs only when direct state
// fields and address parsing both came up empty.
type StateClassifier struct {
	client   *Client
	executor *resilience.Executor
}

func NewStateClassifier(client *Client, executor *resilience.Executor) *StateClassifier {
	return &StateClassifier{client: client, executor: executor}
}

type stateClassification struct {
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (c *StateClassifier) ClassifyState(ctx context.Context, req ports.StateClassifierRequest) (domain.StateDetectionResult, error) {
	var respText string
	err := c.executor.Execute(ctx, "ollama_classify_state", func(ctx context.Context) error {
		var innerErr error
		respText, innerErr = c.client.generateJSON(ctx, buildStatePrompt(req))
		return innerErr
	}, classifyOllamaError)
	if err != nil {
		return domain.StateDetectionResult{}, wrapTemporaryIfNeeded("classify state", err)
	}

	var result stateClassification
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.StateDetectionResult{}, fmt.Errorf("parse state classification json: %w", err)
	}

	return domain.StateDetectionResult{
		State:      strings.ToUpper(strings.TrimSpace(result.State)),
		Confidence: result.Confidence,
		Reasoning:  result.Reasoning,
	}, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
