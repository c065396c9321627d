package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/aria/backend/internal/middleware"
	"github.com/zhouzirui/aria/backend/internal/model/persona"
	"github.com/zhouzirui/aria/backend/internal/service/conversation"
)

type echoPipeline struct{}

func (echoPipeline) Handle(_ context.Context, in conversation.Inbound) (conversation.Reply, error) {
	if strings.TrimSpace(in.Text) == "" {
		return conversation.Reply{}, conversation.ErrEmptyMessage
	}
	return conversation.Reply{
		Response:  in.DisplayName + " said " + in.Text,
		Intent:    "general",
		PersonaID: in.PersonaID,
	}, nil
}

type slowPipeline struct {
	delay time.Duration
}

func (p slowPipeline) Handle(ctx context.Context, in conversation.Inbound) (conversation.Reply, error) {
	time.Sleep(p.delay)
	return echoPipeline{}.Handle(ctx, in)
}

type frame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	return dialHandler(t, New(echoPipeline{}, persona.NewMemoryStore(persona.Seed())))
}

func dialHandler(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), "u-1", "sam")))
		})
	})
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?personaId=aria", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello frame
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "connected" {
		t.Fatalf("expected connected frame, got %+v err %v", hello, err)
	}
	return conn
}

func TestWebSocketTextRoundTrip(t *testing.T) {
	conn := dial(t)

	if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "hello"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "result" || got.Data["response"] != "sam said hello" || got.Data["personaId"] != "aria" {
		t.Fatalf("unexpected frame %+v", got)
	}
}

func TestWebSocketErrors(t *testing.T) {
	conn := dial(t)

	conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "  "}})
	var got frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "error" || got.Data["message"] != "Message cannot be empty" {
		t.Fatalf("unexpected frame %+v", got)
	}

	conn.WriteJSON(map[string]any{"type": "audio"})
	if err := conn.ReadJSON(&got); err != nil || got.Type != "error" {
		t.Fatalf("expected error for unsupported type, got %+v err %v", got, err)
	}
}

func TestWebSocketConfigSwitchesPersona(t *testing.T) {
	conn := dial(t)

	conn.WriteJSON(map[string]any{"type": "config", "data": map[string]string{"personaId": "quill"}})
	var ack frame
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != "config" {
		t.Fatalf("expected config ack, got %+v err %v", ack, err)
	}

	conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "check my essay"}})
	var got frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Data["personaId"] != "quill" {
		t.Fatalf("persona not switched: %+v", got)
	}

	conn.WriteJSON(map[string]any{"type": "config", "data": map[string]string{"personaId": "ghost"}})
	if err := conn.ReadJSON(&got); err != nil || got.Type != "error" {
		t.Fatalf("expected error for unknown persona, got %+v", got)
	}
}

func TestWebSocketSurvivesPipelineSlowerThanReadTimeout(t *testing.T) {
	h := New(slowPipeline{delay: 300 * time.Millisecond}, persona.NewMemoryStore(persona.Seed()))
	h.readTimeout = 100 * time.Millisecond
	h.pingInterval = 50 * time.Millisecond
	conn := dialHandler(t, h)

	for _, text := range []string{"first", "second"} {
		if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": text}}); err != nil {
			t.Fatalf("write %q: %v", text, err)
		}
		var got frame
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read reply to %q: %v", text, err)
		}
		if got.Type != "result" || got.Data["response"] != "sam said "+text {
			t.Fatalf("unexpected frame %+v", got)
		}
	}
}
