package automation

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/pquerna/otp"
)

// RetryPolicy bounds how often session setup is attempted.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is three attempts, two seconds apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 2 * time.Second}

// OpenWithRetry calls open until it succeeds or the policy is exhausted. The
// final error wraps domain.ErrSessionInit and every attempt's failure.
func OpenWithRetry(
	ctx context.Context,
	policy RetryPolicy,
	open func(ctx context.Context) (Session, error),
) (Session, error) {
	attempts := max(policy.Attempts, 1)

	var errs []error
	for attempt := 1; attempt <= attempts; attempt++ {
		s, err := open(ctx)
		if err == nil {
			return s, nil
		}
		errs = append(errs, fmt.Errorf("attempt %d: %w", attempt, err))

		if attempt == attempts {
			break
		}

		t := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			errs = append(errs, ctx.Err())
			return nil, domain.Fail(domain.ErrSessionInit, errors.Join(errs...))
		case <-t.C:
		}
	}

	return nil, domain.Fail(domain.ErrSessionInit, errors.Join(errs...))
}

// Strategy is one way of performing an interaction.
type Strategy[T any] func(ctx context.Context) (T, error)

// FirstSuccess tries strategies in order and returns the first success. If
// all fail, the joined errors are returned.
func FirstSuccess[T any](ctx context.Context, strategies ...Strategy[T]) (T, error) {
	var zero T
	if len(strategies) == 0 {
		return zero, errors.New("automation: no strategies")
	}

	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, errors.Join(append(errs, err)...)
		}
		v, err := s(ctx)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	return zero, errors.Join(errs...)
}

// SecretFromOTPAuthURL extracts the shared secret from a scannable-code
// payload such as otpauth://totp/Issuer:alice?secret=JBSWY3DP&issuer=Issuer.
// A bare base32 secret, as shown by "can't scan" fallbacks, is accepted too.
func SecretFromOTPAuthURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.Fail(domain.ErrEnrollmentUI, errors.New("empty scannable code payload"))
	}

	secret := raw
	if strings.Contains(raw, "://") {
		key, err := otp.NewKeyFromURL(raw)
		if err != nil {
			return "", domain.Fail(domain.ErrEnrollmentUI, fmt.Errorf("decode otpauth url: %w", err))
		}
		if key.Type() != "totp" {
			return "", domain.Fail(domain.ErrEnrollmentUI, fmt.Errorf("unsupported otp type %q", key.Type()))
		}
		secret = key.Secret()
	}

	secret = NormalizeSecret(secret)
	if secret == "" {
		return "", domain.Fail(domain.ErrEnrollmentUI, errors.New("scannable code has no secret"))
	}
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(secret, "=")); err != nil {
		return "", domain.Fail(domain.ErrEnrollmentUI, fmt.Errorf("secret is not base32: %w", err))
	}

	return secret, nil
}

// NormalizeSecret strips the spaces services add for readability and
// upper-cases the base32 alphabet.
func NormalizeSecret(secret string) string {
	return strings.ToUpper(strings.Join(strings.Fields(secret), ""))
}
