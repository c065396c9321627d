package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/zhouzirui/aria/backend/pkg/auth"
)

func protected(t *testing.T) (http.Handler, *pkgauth.Signer) {
	t.Helper()
	signer, err := pkgauth.NewSigner("middleware-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner err: %v", err)
	}
	h := Auth(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context()) + "/" + Username(r.Context())))
	}))
	return h, signer
}

func TestAuthAcceptsBearerAndQueryToken(t *testing.T) {
	h, signer := protected(t)
	token, _ := signer.Issue("u-1", "sam")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "u-1/sam" {
		t.Fatalf("bearer: got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query token: got %d", rec.Code)
	}
}

func TestAuthRejects(t *testing.T) {
	h, _ := protected(t)

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"garbage": "Bearer not-a-jwt",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight: code=%d called=%v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing allow-origin header")
	}
}
