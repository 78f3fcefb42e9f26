package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTTLConfiguration(t *testing.T) {
	if got := NewTokenManager("s", "", 0).TTL(); got != DefaultTokenTTL {
		t.Fatalf("expected zero ttl to default to %v, got %v", DefaultTokenTTL, got)
	}
	// Negative TTLs must survive so expiry behavior stays testable.
	if got := NewTokenManager("s", "", -time.Minute).TTL(); got != -time.Minute {
		t.Fatalf("expected negative ttl to be kept, got %v", got)
	}
	if got := NewTokenManager("s", "", time.Hour).TTL(); got != time.Hour {
		t.Fatalf("expected configured ttl to be kept, got %v", got)
	}
}

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", "storefront-test", time.Minute)

	token, err := tm.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	subject, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if subject != "alice" {
		t.Fatalf("expected subject alice, got %q", subject)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "storefront-test", -time.Minute)

	token, err := tm.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := tm.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	tm := NewTokenManager("test-secret", "storefront-test", time.Minute)
	other := NewTokenManager("other-secret", "storefront-test", time.Minute)

	token, err := other.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := tm.Verify(token); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}

	good, _ := tm.Issue("alice")
	parts := strings.Split(good, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", good)
	}
	mangled := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]
	if _, err := tm.Verify(mangled); err == nil {
		t.Fatal("expected mangled signature to be rejected")
	}
	if _, err := tm.Verify("not-a-token"); err == nil {
		t.Fatal("expected garbage to be rejected")
	}
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc.def.ghi")
	if err != nil || token != "abc.def.ghi" {
		t.Fatalf("expected token, got %q err %v", token, err)
	}

	for _, header := range []string{"", "abc.def.ghi", "Basic abc", "Bearer"} {
		if _, err := ExtractToken(header); err == nil {
			t.Fatalf("expected header %q to be rejected", header)
		}
	}
}
