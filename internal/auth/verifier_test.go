package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestDevTokens(t *testing.T) {
	v := NewVerifier("", "")
	p, err := v.Verify("acme:Dispatcher")
	if err != nil {
		t.Fatal(err)
	}
	if p.Tenant != "acme" || p.Role != "dispatcher" || !p.CanSchedule() {
		t.Fatalf("principal: %+v", p)
	}
	if _, err := v.Verify("acme"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestHMACTokens(t *testing.T) {
	v := NewVerifier("hmac", "s3cret")
	exp := time.Now().Add(time.Hour).Unix()

	p, err := v.Verify(sign(t, "s3cret", jwt.MapClaims{"tenant": "acme", "role": "admin", "sub": "u1", "exp": exp}, jwt.SigningMethodHS256))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "acme" || p.Role != "admin" || p.Subject != "u1" {
		t.Fatalf("principal: %+v", p)
	}

	bad := map[string]string{
		"wrong secret":    sign(t, "other", jwt.MapClaims{"tenant": "acme", "exp": exp}, jwt.SigningMethodHS256),
		"expired":         sign(t, "s3cret", jwt.MapClaims{"tenant": "acme", "exp": time.Now().Add(-time.Hour).Unix()}, jwt.SigningMethodHS256),
		"no expiry":       sign(t, "s3cret", jwt.MapClaims{"tenant": "acme"}, jwt.SigningMethodHS256),
		"no tenant":       sign(t, "s3cret", jwt.MapClaims{"exp": exp}, jwt.SigningMethodHS256),
		"other algorithm": sign(t, "s3cret", jwt.MapClaims{"tenant": "acme", "exp": exp}, jwt.SigningMethodHS512),
		"garbage":         "not.a.jwt",
	}
	for name, tok := range bad {
		if _, err := v.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: want ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestViewerCannotSchedule(t *testing.T) {
	p, err := NewVerifier("hmac", "k").Verify(sign(t, "k", jwt.MapClaims{"tenant": "acme", "exp": time.Now().Add(time.Minute).Unix()}, jwt.SigningMethodHS256))
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != "viewer" || p.CanSchedule() {
		t.Fatalf("principal: %+v", p)
	}
}
