package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"bookreader/pkg/domain"
)

func newTestTokens(t *testing.T, ttl time.Duration) *Tokens {
	t.Helper()
	tokens, err := NewTokens("test-secret", "bookreader", ttl)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	return tokens
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	tokens := newTestTokens(t, time.Hour)
	claims := domain.Claims{UserID: "user-1", Role: domain.RoleAdmin}

	token, err := tokens.Issue(claims)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != claims {
		t.Fatalf("claims mismatch: got %+v want %+v", got, claims)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	tokens := newTestTokens(t, time.Hour)
	token, err := tokens.Issue(domain.Claims{UserID: "user-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Move the verifier clock past the expiry window.
	tokens.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	tokens := newTestTokens(t, time.Hour)
	token, err := tokens.Issue(domain.Claims{UserID: "user-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := tokens.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	tokens := newTestTokens(t, time.Hour)
	other, err := NewTokens("other-secret", "bookreader", time.Hour)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	token, err := other.Issue(domain.Claims{UserID: "user-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	tokens := newTestTokens(t, time.Hour)
	if _, err := tokens.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for structural corruption, got %v", err)
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("  ", "bookreader", time.Hour); err == nil {
		t.Fatalf("expected constructor error for blank secret")
	}
}
