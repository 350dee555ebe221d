package auth

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/apperr"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Errorf("VerifyPassword(correct) = %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("VerifyPassword(wrong) = %v, want ErrInvalidCredentials", err)
	}
}

func TestTokens_IssueValidate(t *testing.T) {
	tokens := NewTokens("secret", "quire", time.Hour)
	raw, err := tokens.Issue("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := tokens.Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokens_RejectsWrongSecret(t *testing.T) {
	raw, _ := NewTokens("secret", "quire", time.Hour).Issue("u", "e")
	_, err := NewTokens("other", "quire", time.Hour).Validate(raw)
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens := NewTokens("secret", "quire", time.Minute)
	issued := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return issued }
	raw, _ := tokens.Issue("u", "e")

	tokens.now = time.Now
	if _, err := tokens.Validate(raw); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expired token err = %v", err)
	}
}

func TestTokens_RejectsGarbage(t *testing.T) {
	tokens := NewTokens("secret", "quire", time.Hour)
	_, err := tokens.Validate("not-a-token")
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("err = %v", err)
	}
}

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(time.Hour, 2)
	if !l.Allow("a@example.com") || !l.Allow("A@example.com ") {
		t.Fatal("first two attempts should pass")
	}
	if l.Allow("a@example.com") {
		t.Error("third attempt should be throttled")
	}
	if !l.Allow("b@example.com") {
		t.Error("other keys are independent")
	}
}

func TestLoginLimiter_ForgetsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLoginLimiter(time.Minute, 2)
	l.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		l.Allow(fmt.Sprintf("user%d@example.com", i))
	}
	l.Allow("hot@example.com")
	l.Allow("hot@example.com")
	if got := len(l.limiters); got != 1001 {
		t.Fatalf("tracked keys = %d, want 1001", got)
	}

	now = now.Add(30 * time.Second)
	if l.Allow("hot@example.com") {
		t.Error("exhausted key should still be throttled before it refills")
	}

	now = now.Add(100 * time.Second)
	if !l.Allow("fresh@example.com") {
		t.Fatal("new key should pass")
	}
	if got := len(l.limiters); got != 2 {
		t.Errorf("tracked keys after sweep = %d, want 2", got)
	}
}

func TestLoginLimiter_Disabled(t *testing.T) {
	l := NewLoginLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !l.Allow("x") {
			t.Fatalf("attempt %d throttled with limiter disabled", i)
		}
	}
}
