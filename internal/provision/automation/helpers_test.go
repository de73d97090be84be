package automation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/automation"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

type fakeSession string

func (s fakeSession) ID() string { return string(s) }

func TestOpenWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		s, err := automation.OpenWithRetry(context.Background(),
			automation.RetryPolicy{Attempts: 3, Delay: time.Millisecond},
			func(ctx context.Context) (automation.Session, error) {
				calls++
				if calls < 3 {
					return nil, errors.New("driver not ready")
				}
				return fakeSession("s1"), nil
			})
		require.NoError(t, err)
		require.Equal(t, "s1", s.ID())
		require.Equal(t, 3, calls)
	})

	t.Run("exhaustion is a session init error", func(t *testing.T) {
		calls := 0
		_, err := automation.OpenWithRetry(context.Background(),
			automation.RetryPolicy{Attempts: 2, Delay: time.Millisecond},
			func(ctx context.Context) (automation.Session, error) {
				calls++
				return nil, errors.New("no browser")
			})
		require.ErrorIs(t, err, domain.ErrSessionInit)
		require.Contains(t, err.Error(), "attempt 2")
		require.Equal(t, 2, calls)
	})

	t.Run("cancellation stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := automation.OpenWithRetry(ctx,
			automation.RetryPolicy{Attempts: 5, Delay: time.Hour},
			func(ctx context.Context) (automation.Session, error) {
				calls++
				cancel()
				return nil, errors.New("no browser")
			})
		require.ErrorIs(t, err, domain.ErrSessionInit)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	})
}

func TestFirstSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notFound := errors.New("selector not found")

	got, err := automation.FirstSuccess(ctx,
		func(context.Context) (string, error) { return "", notFound },
		func(context.Context) (string, error) { return "by-aria-label", nil },
		func(context.Context) (string, error) { panic("never reached") },
	)
	require.NoError(t, err)
	require.Equal(t, "by-aria-label", got)

	_, err = automation.FirstSuccess(ctx,
		func(context.Context) (int, error) { return 0, notFound },
		func(context.Context) (int, error) { return 0, errors.New("timeout") },
	)
	require.ErrorIs(t, err, notFound)
	require.Contains(t, err.Error(), "timeout")

	_, err = automation.FirstSuccess[int](ctx)
	require.Error(t, err)
}

func TestSecretFromOTPAuthURL(t *testing.T) {
	t.Parallel()

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "Example", AccountName: "alice@example.com"})
	require.NoError(t, err)

	t.Run("decodes generated key url", func(t *testing.T) {
		secret, err := automation.SecretFromOTPAuthURL(key.URL())
		require.NoError(t, err)
		require.Equal(t, key.Secret(), secret)
	})

	t.Run("accepts a bare grouped secret", func(t *testing.T) {
		secret, err := automation.SecretFromOTPAuthURL("jbsw y3dp ehpk 3pxp")
		require.NoError(t, err)
		require.Equal(t, "JBSWY3DPEHPK3PXP", secret)
	})

	bad := []string{
		"",
		"otpauth://totp/Example:alice",
		"otpauth://hotp/Example:alice?secret=JBSWY3DPEHPK3PXP&counter=1",
		"not base32 at all!",
	}
	for _, raw := range bad {
		_, err := automation.SecretFromOTPAuthURL(raw)
		require.ErrorIs(t, err, domain.ErrEnrollmentUI, raw)
	}
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	require.Equal(t, "challenge_required", automation.LoginChallengeRequired.String())
	require.Equal(t, "not_configured", automation.EnrollmentNotConfigured.String())
	require.Equal(t, "unknown", automation.EnrollmentUnknown.String())
	require.Equal(t, "error", automation.TwoFactorError.String())
}
