package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func init() {
	BCryptCost = bcrypt.MinCost
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword error = %v", err)
	}
	if hash == "secret123" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !VerifyPassword(hash, "secret123") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
	if VerifyPassword("not-a-hash", "secret123") {
		t.Fatal("expected malformed hash to fail")
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner error = %v", err)
	}

	token, err := s.Issue("user-1", "sam")
	if err != nil {
		t.Fatalf("Issue error = %v", err)
	}
	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "sam" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSignerRejectsForeignAndExpiredTokens(t *testing.T) {
	s, _ := NewSigner("secret-a", time.Hour)
	other, _ := NewSigner("secret-b", time.Hour)

	token, _ := other.Issue("user-1", "sam")
	if _, err := s.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign token: err = %v", err)
	}

	expired, _ := NewSigner("secret-a", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue("user-1", "sam")
	if _, err := s.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: err = %v", err)
	}

	if _, err := s.Parse(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: err = %v", err)
	}
}

func TestNewSignerNeedsSecret(t *testing.T) {
	if _, err := NewSigner("", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("err = %v", err)
	}
}
