package nlu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClassifierClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/nlu/classify" {
			t.Errorf("path = %s, want /api/nlu/classify", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["message"] != "hello" {
			t.Errorf("message = %q, want hello", req["message"])
		}
		_ = json.NewEncoder(w).Encode(Result{
			Intent:     "greeting",
			Confidence: 0.95,
			Entities:   map[string]any{},
		})
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClassifier() error = %v", err)
	}

	got, err := c.Classify(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Intent != "greeting" || got.Confidence != 0.95 {
		t.Errorf("Classify() = %+v, want greeting/0.95", got)
	}
}

func TestHTTPClassifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClassifier() error = %v", err)
	}

	if _, err := c.Classify(context.Background(), "hello"); err == nil {
		t.Fatal("Classify() error = nil, want error on 500")
	}
}

func TestHTTPClassifierTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(Fallback())
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(srv.URL, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewHTTPClassifier() error = %v", err)
	}

	if _, err := c.Classify(context.Background(), "hello"); err == nil {
		t.Fatal("Classify() error = nil, want timeout error")
	}
}

func TestParseModelResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Result
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"intent": "greeting", "confidence": 0.9}`,
			want:    Result{Intent: "greeting", Confidence: 0.9},
		},
		{
			name:    "code fence",
			content: "```json\n{\"intent\": \"help\", \"confidence\": 0.7}\n```",
			want:    Result{Intent: "help", Confidence: 0.7},
		},
		{
			name:    "confidence clamped",
			content: `{"intent": "goodbye", "confidence": 1.4}`,
			want:    Result{Intent: "goodbye", Confidence: 1},
		},
		{
			name:    "missing intent",
			content: `{"confidence": 0.4}`,
			want:    Result{Intent: IntentUnknown, Confidence: 0.4},
		},
		{
			name:    "no JSON",
			content: "the intent is greeting",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModelResult(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseModelResult() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseModelResult() error = %v", err)
			}
			if got.Intent != tt.want.Intent || got.Confidence != tt.want.Confidence {
				t.Errorf("parseModelResult() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
