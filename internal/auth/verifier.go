// Package auth provides bearer token verification.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates bearer tokens and extracts tenant/role claims.
// Supports modes: dev (tenant:role tokens, no verification) and hmac (HS256 JWT).
type Verifier struct {
	Mode        string
	HMACSecret  []byte
	TenantClaim string
	RoleClaim   string
}

type Principal struct {
	Tenant  string
	Role    string
	Subject string
}

func NewVerifier(mode, secret string) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{Mode: mode, HMACSecret: []byte(secret), TenantClaim: "tenant", RoleClaim: "role"}
}

var ErrInvalidToken = errors.New("invalid token")

func (v *Verifier) Verify(token string) (Principal, error) {
	switch v.Mode {
	case "dev":
		// token format: tenant:role
		parts := strings.Split(token, ":")
		if len(parts) >= 2 && parts[0] != "" {
			return Principal{Tenant: parts[0], Role: strings.ToLower(parts[1])}, nil
		}
		return Principal{}, fmt.Errorf("%w: expected tenant:role", ErrInvalidToken)
	case "hmac":
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return v.HMACSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		tenant, _ := claims[v.TenantClaim].(string)
		role, _ := claims[v.RoleClaim].(string)
		sub, _ := claims.GetSubject()
		if tenant == "" {
			return Principal{}, fmt.Errorf("%w: missing tenant claim", ErrInvalidToken)
		}
		if role == "" {
			role = "viewer"
		}
		return Principal{Tenant: tenant, Role: strings.ToLower(role), Subject: sub}, nil
	}
	return Principal{}, fmt.Errorf("unsupported auth mode %q", v.Mode)
}

// CanSchedule reports whether the role may run mutating scheduling operations.
func (p Principal) CanSchedule() bool { return p.Role == "admin" || p.Role == "dispatcher" }
