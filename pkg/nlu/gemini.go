package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.0-flash"
)

func init() {
	RegisterFactory("gemini", func(config map[string]any) (Classifier, error) {
		apiKey := stringOption(config, "api_key")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY not set")
		}
		baseURL := stringOption(config, "base_url")
		if baseURL == "" {
			baseURL = geminiBaseURL
		}
		model := stringOption(config, "model")
		return NewGeminiClassifier(apiKey, baseURL, model), nil
	})
}

// GeminiClassifier classifies intent with the Gemini generateContent API,
// prompted to emit the same JSON label shape as the OpenAI provider.
type GeminiClassifier struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGeminiClassifier creates a Gemini-backed classifier.
func NewGeminiClassifier(apiKey, baseURL, model string) *GeminiClassifier {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiClassifier{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name identifies the provider.
func (g *GeminiClassifier) Name() string { return "gemini" }

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Classify asks Gemini for an intent label.
func (g *GeminiClassifier) Classify(ctx context.Context, message string) (Result, error) {
	req := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: classifyPrompt}},
		},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: message}}},
		},
		GenerationConfig: &geminiGenConfig{
			Temperature:      0,
			ResponseMimeType: "application/json",
		},
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("gemini: empty response")
	}

	result, err := parseModelResult(parsed.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: %w", err)
	}
	result.Entities = extractEntities(message)
	return result, nil
}
