// Package session provides conversation session persistence and lifecycle
// management for the chatgo platform. A session is a durable, user-owned
// conversation thread with an ordered message history and a lifecycle status.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusActive marks a session that is accepting new turns.
	StatusActive Status = "active"
	// StatusInactive is reserved for suspend/resume flows.
	StatusInactive Status = "inactive"
	// StatusExpired marks a session retired by the staleness sweep.
	StatusExpired Status = "expired"
	// StatusTerminated marks a session explicitly closed by its owner.
	StatusTerminated Status = "terminated"
)

// MessageType distinguishes who produced a conversation message.
type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeBot    MessageType = "bot"
	MessageTypeSystem MessageType = "system"
)

// Message is a single conversation turn entry. Once appended to a session a
// message is immutable and its position in the history never changes.
type Message struct {
	MessageID string      `json:"messageId" firestore:"messageId"`
	Content   string      `json:"content" firestore:"content"`
	Type      MessageType `json:"type" firestore:"type"`
	Sender    string      `json:"sender" firestore:"sender"`
	Timestamp time.Time   `json:"timestamp" firestore:"timestamp"`
	Intent    string      `json:"intent,omitempty" firestore:"intent,omitempty"`
	// Confidence is only populated on bot messages carrying a
	// classification result.
	Confidence float64        `json:"confidence,omitempty" firestore:"confidence,omitempty"`
	Entities   map[string]any `json:"entities,omitempty" firestore:"entities,omitempty"`
}

// NewMessage constructs a message with a fresh ID and the current timestamp.
func NewMessage(content string, typ MessageType, sender string) Message {
	return Message{
		MessageID: uuid.New().String(),
		Content:   content,
		Type:      typ,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// Session is a durable conversation thread owned by a single user.
// Messages are append-only; LastActivity never decreases.
type Session struct {
	SessionID     string         `json:"sessionId" firestore:"sessionId"`
	UserID        string         `json:"userId" firestore:"userId"`
	CreatedAt     time.Time      `json:"createdAt" firestore:"createdAt"`
	LastActivity  time.Time      `json:"lastActivity" firestore:"lastActivity"`
	Status        Status         `json:"status" firestore:"status"`
	Context       map[string]any `json:"context,omitempty" firestore:"context,omitempty"`
	Messages      []Message      `json:"messages" firestore:"messages"`
	CurrentIntent string         `json:"currentIntent,omitempty" firestore:"currentIntent,omitempty"`
	Entities      map[string]any `json:"entities,omitempty" firestore:"entities,omitempty"`
}

// New constructs an empty active session for a user.
func New(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:    uuid.New().String(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		Status:       StatusActive,
		Context:      map[string]any{},
		Messages:     []Message{},
		Entities:     map[string]any{},
	}
}

// Append adds a message to the history and advances LastActivity.
// LastActivity is monotonically non-decreasing.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
	if msg.Intent != "" {
		s.CurrentIntent = msg.Intent
		if len(msg.Entities) > 0 {
			s.Entities = msg.Entities
		}
	}
	if now := time.Now().UTC(); now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// Clone returns a deep copy of the session. Stores hand out clones so
// callers cannot mutate persisted state in place.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	cp.Context = cloneMap(s.Context)
	cp.Entities = cloneMap(s.Entities)
	return &cp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
