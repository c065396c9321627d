package feedback

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aria/backend/internal/analysis/intent"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
)

func setupRouter(threshold int) *chi.Mux {
	r := chi.NewRouter()
	New(intent.NewClassifier(knowledge.MustDefault(), intent.Config{RetrainThreshold: threshold})).RegisterRoutes(r)
	return r
}

func send(r http.Handler, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestFeedbackRetrainsAtThreshold(t *testing.T) {
	r := setupRouter(2)

	resp := send(r, map[string]string{"text": "pizza party", "intent": "general"})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	var first struct {
		Pending   int  `json:"pending"`
		Retrained bool `json:"retrained"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &first)
	if first.Pending != 1 || first.Retrained {
		t.Fatalf("unexpected first result %+v", first)
	}

	resp = send(r, map[string]string{"text": "pizza night", "intent": "general"})
	var second struct {
		Pending   int  `json:"pending"`
		Retrained bool `json:"retrained"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &second)
	if second.Pending != 0 || !second.Retrained {
		t.Fatalf("unexpected second result %+v", second)
	}
}

func TestFeedbackRejectsBadInput(t *testing.T) {
	r := setupRouter(10)

	if resp := send(r, map[string]string{"text": "hi", "intent": "bogus"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown label: expected 400, got %d", resp.Code)
	}
	if resp := send(r, map[string]string{"text": " ", "intent": "greeting"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("empty text: expected 400, got %d", resp.Code)
	}
}
