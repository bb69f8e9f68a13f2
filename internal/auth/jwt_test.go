package auth

import (
	"testing"
	"time"

	"uikit-analytics/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:   "secret",
		JWTIssuer:   "issuer",
		JWTAudience: "aud",
		TokenTTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := testManager(t)

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "user-1", "designer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected token string")
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "designer" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyUsesProvidedClock(t *testing.T) {
	m := testManager(t)

	issued := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	tok, err := m.Issue(issued, "user-1", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Valid relative to the provided time even though wall time is long past expiry.
	if _, err := m.Verify(tok, issued.Add(6*24*time.Hour)); err != nil {
		t.Fatalf("verify at provided time: %v", err)
	}

	// Just past expiry, inside the clock skew tolerance.
	if _, err := m.Verify(tok, issued.Add(7*24*time.Hour).Add(10*time.Second)); err != nil {
		t.Fatalf("verify within skew tolerance: %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := testManager(t)

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "user-1", "developer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Past the 7d TTL plus leeway: re-authentication is required, no refresh path.
	if _, err := m.Verify(tok, now.Add(8*24*time.Hour)); err == nil {
		t.Fatalf("expected expiry rejection")
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	m := testManager(t)
	other, err := NewManager(config.AuthConfig{JWTSecret: "different", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Now().UTC()
	tok, err := other.Issue(now, "user-1", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, now); err == nil {
		t.Fatalf("expected signature rejection")
	}
}

func TestIssueRequiresIdentity(t *testing.T) {
	m := testManager(t)
	now := time.Now().UTC()

	if _, err := m.Issue(now, "", "admin"); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, err := m.Issue(now, "user-1", ""); err == nil {
		t.Fatalf("expected error for missing role")
	}
}
