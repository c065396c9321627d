package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aria/backend/internal/service/conversation"
)

type fakePipeline struct {
	last conversation.Inbound
}

func (f *fakePipeline) Handle(_ context.Context, in conversation.Inbound) (conversation.Reply, error) {
	f.last = in
	if strings.TrimSpace(in.Text) == "" {
		return conversation.Reply{}, conversation.ErrEmptyMessage
	}
	return conversation.Reply{
		Response:   "Hi there! I'm so happy to talk with you!",
		Intent:     "greeting",
		Confidence: 0.9,
		Sentiment:  "neutral",
		Mood:       "happy",
		Provider:   "fallback",
		PersonaID:  "aria",
		Timestamp:  time.Date(2024, 2, 14, 20, 0, 0, 0, time.UTC),
	}, nil
}

func setupRouter() (*chi.Mux, *fakePipeline) {
	p := &fakePipeline{}
	r := chi.NewRouter()
	New(p).RegisterRoutes(r)
	return r, p
}

func TestStreamEmitsEventsInOrder(t *testing.T) {
	r, p := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/stream?message=hello&personaId=aria", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if p.last.Text != "hello" || p.last.PersonaID != "aria" {
		t.Fatalf("pipeline got %+v", p.last)
	}

	body := resp.Body.String()
	last := -1
	for _, event := range []string{"event: start", "event: message", "event: meta", "event: end"} {
		idx := strings.Index(body, event)
		if idx <= last {
			t.Fatalf("event %q missing or out of order in %q", event, body)
		}
		last = idx
	}
	if !strings.Contains(body, `"timestamp":"2024-02-14 20:00:00"`) {
		t.Fatalf("meta timestamp missing: %s", body)
	}
}

func TestStreamEmptyMessageIs400(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
