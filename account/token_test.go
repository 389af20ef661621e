package account

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer("0123456789abcdef0123", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	u := &User{ID: 42, Username: "alice"}

	token, err := issuer.Issue(u, "session-key")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.SessionID != "session-key" {
		t.Errorf("Unexpected claims %+v", claims)
	}

	t.Run("other secret", func(t *testing.T) {
		other, _ := NewTokenIssuer("another-secret-that-is-long", time.Hour)
		if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { issuer.now = time.Now }()
		if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestNewTokenIssuer_ShortSecret(t *testing.T) {
	if _, err := NewTokenIssuer("short", time.Hour); err == nil {
		t.Error("Expected error for short secret")
	}
}
