package auth

import (
	"context"
	"testing"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "admin")

	id, err := UserID(ctx)
	if err != nil || id != "user-1" {
		t.Fatalf("user id: %q, %v", id, err)
	}
	role, err := Role(ctx)
	if err != nil || role != "admin" {
		t.Fatalf("role: %q, %v", role, err)
	}
}

func TestIdentityMissingFromContext(t *testing.T) {
	if _, err := UserID(context.Background()); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, err := Role(context.Background()); err == nil {
		t.Fatalf("expected error for missing role")
	}
}
