// Package chat drives a single conversation turn: resolve the session,
// record the user's message, classify it, pick a reply, record the
// bot's message, and hand back a composed response.
package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatgo-dev/chatgo/pkg/nlu"
	"github.com/chatgo-dev/chatgo/pkg/observability"
	"github.com/chatgo-dev/chatgo/pkg/session"
)

// DefaultClassifyTimeout bounds a single classifier call within a turn.
const DefaultClassifyTimeout = 5 * time.Second

// BotSender is the sender recorded on bot-authored messages.
const BotSender = "bot"

// TurnRequest is one inbound user utterance. SessionID may be empty,
// in which case a fresh session is started for the user.
type TurnRequest struct {
	Message   string         `json:"message"`
	SessionID string         `json:"sessionId,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// ChatResponse is the composed result of one turn. It is returned to
// the caller and never persisted; the durable record of the turn is
// the pair of messages appended to the session.
type ChatResponse struct {
	SessionID   string         `json:"sessionId"`
	MessageID   string         `json:"messageId"`
	Response    string         `json:"response"`
	Intent      string         `json:"intent"`
	Confidence  float64        `json:"confidence"`
	Entities    map[string]any `json:"entities"`
	Timestamp   time.Time      `json:"timestamp"`
	Suggestions []string       `json:"suggestions"`
}

// Orchestrator runs chat turns against a session manager and a
// classifier.
type Orchestrator struct {
	sessions        *session.Manager
	classifier      nlu.Classifier
	classifyTimeout time.Duration
}

// NewOrchestrator creates an orchestrator. A non-positive timeout
// falls back to DefaultClassifyTimeout.
func NewOrchestrator(sessions *session.Manager, classifier nlu.Classifier, classifyTimeout time.Duration) *Orchestrator {
	if classifyTimeout <= 0 {
		classifyTimeout = DefaultClassifyTimeout
	}
	return &Orchestrator{
		sessions:        sessions,
		classifier:      classifier,
		classifyTimeout: classifyTimeout,
	}
}

// ProcessTurn executes one chat turn for userID.
//
// The turn appends the user's message, classifies it, derives the bot
// reply and suggestions from the intent, appends the bot's message,
// and composes the response. Classifier failure or timeout degrades to
// the unknown-intent fallback; only store errors fail the turn. The
// two appends are not atomic: a crash between them leaves the user's
// message without a bot reply, which is accepted.
func (o *Orchestrator) ProcessTurn(ctx context.Context, userID string, req TurnRequest) (*ChatResponse, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "chat.process_turn", trace.WithAttributes(
		attribute.String("chat.user_id", userID),
	))
	defer span.End()

	userMsg := session.NewMessage(req.Message, session.MessageTypeUser, userID)
	sess, err := o.sessions.AddMessage(ctx, req.SessionID, userID, userMsg)
	if err != nil {
		observability.RecordChatTurn(nlu.IntentUnknown, "error", time.Since(start))
		return nil, fmt.Errorf("record user message: %w", err)
	}
	span.SetAttributes(attribute.String("chat.session_id", sess.SessionID))

	result := o.classify(ctx, req.Message)
	span.SetAttributes(
		attribute.String("chat.intent", result.Intent),
		attribute.Float64("chat.confidence", result.Confidence),
	)

	reply := replyFor(result.Intent)

	botMsg := session.NewMessage(reply, session.MessageTypeBot, BotSender)
	botMsg.Intent = result.Intent
	botMsg.Confidence = result.Confidence
	botMsg.Entities = result.Entities

	if _, err := o.sessions.AddMessage(ctx, sess.SessionID, userID, botMsg); err != nil {
		observability.RecordChatTurn(result.Intent, "error", time.Since(start))
		return nil, fmt.Errorf("record bot message: %w", err)
	}

	observability.RecordChatTurn(result.Intent, "ok", time.Since(start))
	// The response carries its own ID, distinct from the stored bot
	// message.
	return &ChatResponse{
		SessionID:   sess.SessionID,
		MessageID:   uuid.New().String(),
		Response:    reply,
		Intent:      result.Intent,
		Confidence:  result.Confidence,
		Entities:    result.Entities,
		Timestamp:   time.Now().UTC(),
		Suggestions: suggestionsFor(result.Intent),
	}, nil
}

// classify invokes the classifier under a per-call timeout and maps
// any error to the fallback triple. Classifier trouble never fails a
// turn; the call is not retried.
func (o *Orchestrator) classify(ctx context.Context, message string) nlu.Result {
	ctx, cancel := context.WithTimeout(ctx, o.classifyTimeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "chat.classify", trace.WithAttributes(
		attribute.String("nlu.provider", o.classifier.Name()),
	))
	defer span.End()

	result, err := o.classifier.Classify(ctx, message)
	if err != nil {
		log.Printf("chat: classification failed, using fallback: %v", err)
		observability.RecordClassification(o.classifier.Name(), "error")
		observability.RecordFallback()
		return nlu.Fallback()
	}
	observability.RecordClassification(o.classifier.Name(), "ok")
	observability.RecordConfidence(result.Intent, result.Confidence)
	if result.Entities == nil {
		result.Entities = map[string]any{}
	}
	return result
}
