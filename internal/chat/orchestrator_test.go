package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatgo-dev/chatgo/pkg/nlu"
	"github.com/chatgo-dev/chatgo/pkg/session"
)

// stubClassifier returns a fixed result or error, or blocks until the
// context is cancelled when block is set.
type stubClassifier struct {
	result nlu.Result
	err    error
	block  bool
	calls  int
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) Classify(ctx context.Context, message string) (nlu.Result, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nlu.Result{}, ctx.Err()
	}
	if s.err != nil {
		return nlu.Result{}, s.err
	}
	return s.result, nil
}

func newTestOrchestrator(t *testing.T, c nlu.Classifier) (*Orchestrator, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(session.NewMemoryStore())
	return NewOrchestrator(mgr, c, time.Second), mgr
}

func TestProcessTurnNewSession(t *testing.T) {
	classifier := &stubClassifier{result: nlu.Result{
		Intent:     "greeting",
		Confidence: 0.95,
		Entities:   map[string]any{},
	}}
	orch, mgr := newTestOrchestrator(t, classifier)
	ctx := context.Background()

	resp, err := orch.ProcessTurn(ctx, "u1", TurnRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session ID in the response")
	}
	if resp.Intent != "greeting" || resp.Confidence != 0.95 {
		t.Errorf("got intent=%q confidence=%v, want greeting/0.95", resp.Intent, resp.Confidence)
	}
	if resp.Response != "Hello! How can I help you today?" {
		t.Errorf("unexpected reply: %q", resp.Response)
	}
	wantSuggestions := []string{"What can you do?", "Help me with something", "Tell me about yourself"}
	if len(resp.Suggestions) != len(wantSuggestions) {
		t.Fatalf("got %d suggestions, want %d", len(resp.Suggestions), len(wantSuggestions))
	}
	for i, s := range wantSuggestions {
		if resp.Suggestions[i] != s {
			t.Errorf("suggestion %d: got %q, want %q", i, resp.Suggestions[i], s)
		}
	}

	sess, err := mgr.Get(ctx, resp.SessionID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Type != session.MessageTypeUser || sess.Messages[0].Content != "hello" {
		t.Errorf("first message: got %s %q", sess.Messages[0].Type, sess.Messages[0].Content)
	}
	if sess.Messages[1].Type != session.MessageTypeBot || sess.Messages[1].Intent != "greeting" {
		t.Errorf("second message: got %s intent=%q", sess.Messages[1].Type, sess.Messages[1].Intent)
	}
	if resp.MessageID == "" {
		t.Error("response messageId is empty")
	}
	if resp.MessageID == sess.Messages[1].MessageID {
		t.Errorf("response messageId %q reuses the bot message ID", resp.MessageID)
	}
}

func TestProcessTurnResumesSession(t *testing.T) {
	classifier := &stubClassifier{result: nlu.Result{Intent: "greeting", Confidence: 0.95, Entities: map[string]any{}}}
	orch, mgr := newTestOrchestrator(t, classifier)
	ctx := context.Background()

	first, err := orch.ProcessTurn(ctx, "u1", TurnRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}

	classifier.result = nlu.Result{Intent: "goodbye", Confidence: 0.9, Entities: map[string]any{}}
	second, err := orch.ProcessTurn(ctx, "u1", TurnRequest{Message: "bye", SessionID: first.SessionID})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("second turn moved to session %s, want %s", second.SessionID, first.SessionID)
	}
	if second.Response != "Goodbye! Have a great day!" {
		t.Errorf("unexpected reply: %q", second.Response)
	}

	sess, err := mgr.Get(ctx, first.SessionID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []struct {
		typ     session.MessageType
		content string
	}{
		{session.MessageTypeUser, "hello"},
		{session.MessageTypeBot, "Hello! How can I help you today?"},
		{session.MessageTypeUser, "bye"},
		{session.MessageTypeBot, "Goodbye! Have a great day!"},
	}
	if len(sess.Messages) != len(want) {
		t.Fatalf("got %d messages, want %d", len(sess.Messages), len(want))
	}
	for i, w := range want {
		if sess.Messages[i].Type != w.typ || sess.Messages[i].Content != w.content {
			t.Errorf("message %d: got %s %q, want %s %q",
				i, sess.Messages[i].Type, sess.Messages[i].Content, w.typ, w.content)
		}
	}
}

func TestProcessTurnClassifierError(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("connection refused")}
	orch, mgr := newTestOrchestrator(t, classifier)
	ctx := context.Background()

	resp, err := orch.ProcessTurn(ctx, "u1", TurnRequest{Message: "hello there"})
	if err != nil {
		t.Fatalf("ProcessTurn should not fail on classifier error: %v", err)
	}
	if resp.Intent != nlu.IntentUnknown || resp.Confidence != 0 {
		t.Errorf("got intent=%q confidence=%v, want unknown/0", resp.Intent, resp.Confidence)
	}
	if resp.Entities == nil || len(resp.Entities) != 0 {
		t.Errorf("expected empty entities, got %v", resp.Entities)
	}
	if resp.Response != "I'm not sure I understand. Could you please rephrase that?" {
		t.Errorf("unexpected reply: %q", resp.Response)
	}
	wantSuggestions := []string{"Try asking for help", "Say hello", "Ask a question"}
	for i, s := range wantSuggestions {
		if resp.Suggestions[i] != s {
			t.Errorf("suggestion %d: got %q, want %q", i, resp.Suggestions[i], s)
		}
	}

	sess, err := mgr.Get(ctx, resp.SessionID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(sess.Messages))
	}
}

func TestProcessTurnClassifierTimeout(t *testing.T) {
	classifier := &stubClassifier{block: true}
	mgr := session.NewManager(session.NewMemoryStore())
	orch := NewOrchestrator(mgr, classifier, 20*time.Millisecond)

	resp, err := orch.ProcessTurn(context.Background(), "u1", TurnRequest{Message: "anyone home?"})
	if err != nil {
		t.Fatalf("ProcessTurn should not fail on classifier timeout: %v", err)
	}
	if resp.Intent != nlu.IntentUnknown {
		t.Errorf("got intent %q, want %q", resp.Intent, nlu.IntentUnknown)
	}
	if classifier.calls != 1 {
		t.Errorf("classifier called %d times, want 1 (no retry)", classifier.calls)
	}
}

func TestReplySelection(t *testing.T) {
	tests := []struct {
		intent string
		want   string
	}{
		{"greeting", "Hello! How can I help you today?"},
		{"goodbye", "Goodbye! Have a great day!"},
		{"help", "I can help you with various tasks. What would you like to know?"},
		{"unknown", "I'm not sure I understand. Could you please rephrase that?"},
		{"weather", "I'm not sure I understand. Could you please rephrase that?"},
	}
	for _, tt := range tests {
		if got := replyFor(tt.intent); got != tt.want {
			t.Errorf("replyFor(%q) = %q, want %q", tt.intent, got, tt.want)
		}
	}
}

func TestSuggestionsCopied(t *testing.T) {
	first := suggestionsFor("greeting")
	first[0] = "mutated"
	second := suggestionsFor("greeting")
	if second[0] != "What can you do?" {
		t.Errorf("suggestion table mutated by caller: %q", second[0])
	}
}
