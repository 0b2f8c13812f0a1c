package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultHTTPTimeout = 5 * time.Second

func init() {
	RegisterFactory("http", func(config map[string]any) (Classifier, error) {
		baseURL := stringOption(config, "base_url")
		return NewHTTPClassifier(baseURL, 0)
	})
}

// HTTPClassifier delegates classification to a remote NLU service over
// its POST /api/nlu/classify endpoint.
type HTTPClassifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClassifier creates a client for a remote NLU service. The
// timeout bounds the whole classify call; zero selects a 5s default.
func NewHTTPClassifier(baseURL string, timeout time.Duration) (*HTTPClassifier, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid NLU base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPClassifier{
		baseURL: parsed.String(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name identifies the provider.
func (c *HTTPClassifier) Name() string { return "http" }

// Classify posts the message to the NLU service and decodes the
// classification triple.
func (c *HTTPClassifier) Classify(ctx context.Context, message string) (Result, error) {
	reqBody, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/nlu/classify", bytes.NewReader(reqBody))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("nlu service error (status %d): %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if result.Entities == nil {
		result.Entities = map[string]any{}
	}
	return result, nil
}
