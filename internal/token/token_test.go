package token

import (
	"errors"
	"testing"
	"time"

	"pkt.systems/sketchroom/schema"
)

func TestIssueAndVerify(t *testing.T) {
	manager, err := NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	raw, err := manager.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, err := manager.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("user = %q, want user-1", userID)
	}
}

func TestVerifyRejectsForgedToken(t *testing.T) {
	manager, _ := NewManager("secret-a", time.Hour)
	other, _ := NewManager("secret-b", time.Hour)
	raw, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := manager.Verify(raw); !errors.Is(err, schema.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager, _ := NewManager("test-secret", time.Nanosecond)
	raw, err := manager.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := manager.Verify(raw); !errors.Is(err, schema.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager, _ := NewManager("test-secret", time.Hour)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := manager.Verify(raw); !errors.Is(err, schema.ErrInvalidToken) {
			t.Fatalf("Verify(%q) err = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("  ", time.Hour); err == nil {
		t.Fatal("empty secret accepted")
	}
}
