package nlu

import (
	"context"
	"regexp"
	"strings"
)

func init() {
	RegisterFactory("keyword", func(map[string]any) (Classifier, error) {
		return NewKeywordClassifier(), nil
	})
}

// intentPatterns lists, in priority order, the phrase patterns that
// signal each intent. Earlier intents win ties.
var intentPatterns = []struct {
	intent   string
	patterns []*regexp.Regexp
}{
	{"greeting", []*regexp.Regexp{
		regexp.MustCompile(`\b(hello|hi|hey|good morning|good afternoon|good evening)\b`),
		regexp.MustCompile(`\b(howdy|greetings|what's up)\b`),
	}},
	{"goodbye", []*regexp.Regexp{
		regexp.MustCompile(`\b(bye|goodbye|see you|farewell|take care)\b`),
		regexp.MustCompile(`\b(see you later|until next time|have a good day)\b`),
	}},
	{"help", []*regexp.Regexp{
		regexp.MustCompile(`\b(help|assist|support|how to|what can you do)\b`),
		regexp.MustCompile(`\b(guide|instructions|tutorial|explain)\b`),
	}},
	{"thanks", []*regexp.Regexp{
		regexp.MustCompile(`\b(thank you|thanks|appreciate|grateful)\b`),
		regexp.MustCompile(`\b(much obliged|cheers|thx)\b`),
	}},
	{"complaint", []*regexp.Regexp{
		regexp.MustCompile(`\b(problem|issue|error|bug|broken|not working)\b`),
		regexp.MustCompile(`\b(complaint|frustrated|angry|disappointed)\b`),
	}},
	{"question", []*regexp.Regexp{
		regexp.MustCompile(`\b(what|how|when|where|why|who|which)\b`),
		regexp.MustCompile(`\b(can you|could you|would you|is it possible)\b`),
	}},
}

var entityPatterns = map[string]*regexp.Regexp{
	"email":  regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	"phone":  regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
	"number": regexp.MustCompile(`\b\d+\b`),
	"url":    regexp.MustCompile(`https?://\S+`),
}

// Exact tokens that boost confidence above the pattern-match baseline.
var exactTokens = []string{"hello", "hi", "bye", "goodbye", "help", "thanks"}

var questionWords = regexp.MustCompile(`\b(what|how|when|where|why|who|which)\b`)

// KeywordClassifier is a local rule-based classifier: intent by phrase
// patterns, entities by regular expressions. It never fails and needs no
// network, which makes it the zero-dependency default provider.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Name identifies the provider.
func (k *KeywordClassifier) Name() string { return "keyword" }

// Classify matches the message against the intent and entity patterns.
// Confidence: 0.8 for a pattern match, 0.95 when an exact token is
// present, 0.6 for the question-word fallback, 0 for unknown.
func (k *KeywordClassifier) Classify(_ context.Context, message string) (Result, error) {
	lower := strings.ToLower(strings.TrimSpace(message))

	entities := extractEntities(message)

	bestIntent := IntentUnknown
	bestConfidence := 0.0
	for _, candidate := range intentPatterns {
		for _, pattern := range candidate.patterns {
			if !pattern.MatchString(lower) {
				continue
			}
			confidence := 0.8
			for _, token := range exactTokens {
				if strings.Contains(lower, token) {
					confidence = 0.95
					break
				}
			}
			if confidence > bestConfidence {
				bestConfidence = confidence
				bestIntent = candidate.intent
			}
		}
	}

	if bestIntent == IntentUnknown && questionWords.MatchString(lower) {
		bestIntent = "question"
		bestConfidence = 0.6
	}

	return Result{
		Intent:     bestIntent,
		Confidence: bestConfidence,
		Entities:   entities,
	}, nil
}

// extractEntities collects regex matches for each entity type.
func extractEntities(message string) map[string]any {
	entities := map[string]any{}
	for entityType, pattern := range entityPatterns {
		if matches := pattern.FindAllString(message, -1); len(matches) > 0 {
			entities[entityType] = matches
		}
	}
	return entities
}
