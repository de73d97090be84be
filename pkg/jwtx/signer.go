package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted.
const MinSecretLength = 32

// Signer is anything that can sign operator tokens.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256 signs and verifies operator tokens with a shared secret. There is a
// single operator API, so no key distribution is needed.
type HS256 struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

var (
	_ Signer   = (*HS256)(nil)
	_ Verifier = (*HS256)(nil)
)

// NewHS256 creates a signer/verifier. issuer is stamped on and required of
// every token; empty disables the check.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		leeway: DefaultLeeway,
		now:    time.Now,
	}, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign stamps the configured issuer when the claims carry none.
func (h *HS256) Sign(claims Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = h.issuer
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(h.secret)
}

// Verify validates the token and returns its claims.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Expiry is checked below with our own clock.
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSig, err)
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, fmt.Errorf("%w: %w", ErrAlgMismatch, err)
		default:
			return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(h.now().UTC(), h.leeway); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
