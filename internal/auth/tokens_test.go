package auth

import (
	"testing"
	"time"
)

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 15*time.Minute)

	token, exp, err := issuer.Issue("uid-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	identity, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity != "uid-1" {
		t.Fatalf("expected uid-1, got %q", identity)
	}
}

func TestTokenVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 15*time.Minute)
	other := NewTokenIssuer("other-secret", 15*time.Minute)

	token, _, err := issuer.Issue("uid-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestTokenVerifyExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, _, err := issuer.Issue("uid-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}
