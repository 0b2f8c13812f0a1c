// Package nlu provides intent classification for chat messages. A
// classifier assigns an intent label, a confidence score in [0,1] and a
// bag of extracted entities to raw message text. Classifiers may be
// remote and may fail or time out; callers degrade to Fallback() rather
// than surfacing classifier trouble.
package nlu

import "context"

// Result is a classification outcome.
type Result struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// IntentUnknown is the label used when no classification is available.
const IntentUnknown = "unknown"

// Fallback returns the degraded classification substituted when a
// classifier cannot respond: intent "unknown", zero confidence, no
// entities.
func Fallback() Result {
	return Result{
		Intent:     IntentUnknown,
		Confidence: 0,
		Entities:   map[string]any{},
	}
}

// Classifier assigns an intent to a message.
type Classifier interface {
	// Name identifies the provider ("http", "keyword", "openai", "gemini").
	Name() string

	// Classify returns the intent classification for a message. Callers
	// bound the call with a context deadline; an error (including
	// deadline exceeded) means no classification is available.
	Classify(ctx context.Context, message string) (Result, error)
}
