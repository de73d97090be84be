package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "provision",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("provision"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		err := c.ValidateIssuer("other")
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		exp    time.Time
		nbf    time.Time
		leeway time.Duration
		want   error
	}{
		{name: "valid", exp: now.Add(time.Minute), nbf: now.Add(-time.Minute)},
		{name: "expired", exp: now.Add(-time.Minute), nbf: now.Add(-time.Hour), want: jwtx.ErrExpired},
		{name: "expired within leeway", exp: now.Add(-10 * time.Second), nbf: now.Add(-time.Hour), leeway: 30 * time.Second},
		{name: "not yet valid", exp: now.Add(time.Hour), nbf: now.Add(time.Minute), want: jwtx.ErrNotYetValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(tt.exp),
				NotBefore: jwt.NewNumericDate(tt.nbf),
			}}
			err := c.ValidateExpiry(now, tt.leeway)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewOperatorClaims(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := jwtx.NewOperatorClaims("ops", []string{jwtx.ScopeRead}, 0, "provision", now)

	require.Equal(t, "ops", c.Subject)
	require.Equal(t, now.Add(jwtx.DefaultOperatorTokenTTL), c.ExpiresAt.Time)
	require.NotEmpty(t, c.ID)
	require.True(t, c.HasScope(jwtx.ScopeRead))
	require.False(t, c.HasScope(jwtx.ScopeRun))
}
