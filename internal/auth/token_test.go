package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/attestia/docseal/internal/auth"
)

func newTestIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	return auth.NewTokenIssuer([]byte("test-signing-secret"), "https://seal.attestia.com", time.Hour)
}

func TestTokenIssuer_Issue(t *testing.T) {
	ti := newTestIssuer(t)

	token, err := ti.Issue("alice", "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}
}

func TestTokenIssuer_Verify_valid(t *testing.T) {
	ti := newTestIssuer(t)

	token, err := ti.Issue("alice", "admin")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Actor != "alice" {
		t.Errorf("Actor: got %q, want alice", claims.Actor)
	}
	if claims.Subject != "alice" {
		t.Errorf("Subject: got %q, want alice", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Errorf("Role: got %q, want admin", claims.Role)
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	ti := auth.NewTokenIssuer([]byte("test-signing-secret"), "https://seal.attestia.com", time.Nanosecond)

	token, err := ti.Issue("alice", "")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestTokenIssuer_Verify_wrongSecret(t *testing.T) {
	ti1 := auth.NewTokenIssuer([]byte("secret-one"), "https://seal.attestia.com", time.Hour)
	ti2 := auth.NewTokenIssuer([]byte("secret-two"), "https://seal.attestia.com", time.Hour)

	token, _ := ti1.Issue("alice", "")
	if _, err := ti2.Verify(token); err == nil {
		t.Error("expected error for wrong secret, got nil")
	}
}

func TestTokenIssuer_Verify_wrongIssuer(t *testing.T) {
	ti1 := auth.NewTokenIssuer([]byte("test-signing-secret"), "https://seal-a.attestia.com", time.Hour)
	ti2 := auth.NewTokenIssuer([]byte("test-signing-secret"), "https://seal-b.attestia.com", time.Hour)

	token, _ := ti1.Issue("alice", "")
	if _, err := ti2.Verify(token); err == nil {
		t.Error("expected error for wrong issuer, got nil")
	}
}
