package auth

import (
	"context"
	"testing"
)

func TestWithPrincipalAndFromContext(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{AdminID: 1, Username: "landlord", Name: "Grace", TokenID: "abc"})
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected Principal in context")
	}
	if got.AdminID != 1 {
		t.Errorf("AdminID = %d, want 1", got.AdminID)
	}
	if got.Username != "landlord" {
		t.Errorf("Username = %q, want %q", got.Username, "landlord")
	}
	if got.TokenID != "abc" {
		t.Errorf("TokenID = %q, want %q", got.TokenID, "abc")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing Principal")
	}
	if AdminID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}
