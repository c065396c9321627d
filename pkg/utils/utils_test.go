package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, "bad input")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"bad input"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`))
	var payload struct {
		Message string `json:"message"`
	}
	if err := DecodeJSON(req, &payload); err != nil {
		t.Fatalf("DecodeJSON err: %v", err)
	}
	if payload.Message != "hi" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{oops`))
	if err := DecodeJSON(bad, &payload); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	SendSSEEvent(rec, rec, "start", map[string]string{"persona": "aria"})

	if got := rec.Body.String(); got != "event: start\ndata: {\"persona\":\"aria\"}\n\n" {
		t.Fatalf("unexpected sse frame %q", got)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("missing sse content type")
	}
}
