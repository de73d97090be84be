package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultOperatorTokenTTL is the lifetime of tokens minted by the CLI.
const DefaultOperatorTokenTTL = 12 * time.Hour

// Operator scopes.
const (
	// ScopeRead lists accounts, runs, logs and current codes.
	ScopeRead = "provision:read"
	// ScopeRun starts batch and single-account runs.
	ScopeRun = "provision:run"
)

// Claims are the operator token claims accepted by the front end.
type Claims struct {
	jwt.RegisteredClaims

	// Scopes granted to the operator, e.g. ["provision:read", "provision:run"]
	Scopes []string `json:"scopes,omitempty"`
}

// NewOperatorClaims builds claims for an operator token.
func NewOperatorClaims(subject string, scopes []string, ttl time.Duration, issuer string, now time.Time) Claims {
	if ttl <= 0 {
		ttl = DefaultOperatorTokenTTL
	}
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Scopes: scopes,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope reports whether scope was granted.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired and isn't used before nbf,
// allowing leeway for clock skew.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
