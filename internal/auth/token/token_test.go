package token

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

func TestIssueAndParse(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	userID := snowflake.ID(123456789)
	raw, err := issuer.Issue(userID, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parsed, err := issuer.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != userID {
		t.Fatalf("expected %d, got %d", userID, parsed)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	raw, err := issuer.Issue(snowflake.ID(1), time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewIssuer("secret-a", time.Hour)
	other, _ := NewIssuer("secret-b", time.Hour)

	raw, err := issuer.Issue(snowflake.ID(1), time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("  ", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
