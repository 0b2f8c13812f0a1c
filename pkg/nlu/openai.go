package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const openaiDefaultModel = "gpt-4o-mini"

const classifyPrompt = `You classify chat messages for a support bot.
Respond with a single JSON object and nothing else:
{"intent": "<label>", "confidence": <0..1>}
Allowed intents: greeting, goodbye, help, thanks, complaint, question, unknown.`

func init() {
	RegisterFactory("openai", func(config map[string]any) (Classifier, error) {
		apiKey := stringOption(config, "api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		model := stringOption(config, "model")
		return NewOpenAIClassifier(apiKey, model), nil
	})
}

// OpenAIClassifier classifies intent with an OpenAI chat model prompted
// to emit a JSON label. Entities are still extracted locally with the
// keyword patterns; the model is only trusted for the label.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier creates an OpenAI-backed classifier.
func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	if model == "" {
		model = openaiDefaultModel
	}
	return &OpenAIClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Name identifies the provider.
func (o *OpenAIClassifier) Name() string { return "openai" }

// Classify asks the model for an intent label.
func (o *OpenAIClassifier) Classify(ctx context.Context, message string) (Result, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifyPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("openai classify: empty response")
	}

	result, err := parseModelResult(resp.Choices[0].Message.Content)
	if err != nil {
		return Result{}, fmt.Errorf("openai classify: %w", err)
	}
	result.Entities = extractEntities(message)
	return result, nil
}

// parseModelResult decodes the {"intent", "confidence"} JSON a model was
// prompted to return, tolerating surrounding prose or code fences.
func parseModelResult(content string) (Result, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in model output")
	}

	var parsed struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return Result{}, fmt.Errorf("decode model output: %w", err)
	}
	if parsed.Intent == "" {
		parsed.Intent = IntentUnknown
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return Result{Intent: parsed.Intent, Confidence: parsed.Confidence}, nil
}
