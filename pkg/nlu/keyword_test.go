package nlu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifierIntents(t *testing.T) {
	k := NewKeywordClassifier()
	ctx := context.Background()

	tests := []struct {
		name           string
		message        string
		wantIntent     string
		wantConfidence float64
	}{
		{"exact greeting", "hello there", "greeting", 0.95},
		{"pattern greeting", "good morning everyone", "greeting", 0.8},
		{"exact goodbye", "bye for now", "goodbye", 0.95},
		{"farewell pattern", "take care", "goodbye", 0.8},
		{"exact help", "help me out", "help", 0.95},
		{"help pattern", "could you explain more", "help", 0.8},
		{"thanks", "thanks a lot", "thanks", 0.95},
		{"complaint", "my order is broken", "complaint", 0.8},
		{"question word", "when does it arrive", "question", 0.8},
		{"no question word boundary", "whom should I contact", IntentUnknown, 0},
		{"unknown", "blue skies ahead", IntentUnknown, 0},
		{"empty", "", IntentUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := k.Classify(ctx, tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, got.Intent)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
		})
	}
}

func TestKeywordClassifierEntities(t *testing.T) {
	k := NewKeywordClassifier()

	got, err := k.Classify(context.Background(), "email me at jo@example.com or call 555-123-4567")
	require.NoError(t, err)

	assert.Equal(t, []string{"jo@example.com"}, got.Entities["email"])
	assert.Contains(t, got.Entities, "phone")
	assert.NotContains(t, got.Entities, "url")
}

func TestFallback(t *testing.T) {
	f := Fallback()
	assert.Equal(t, IntentUnknown, f.Intent)
	assert.Zero(t, f.Confidence)
	require.NotNil(t, f.Entities)
	assert.Empty(t, f.Entities)
}
