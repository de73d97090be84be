package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var secret = []byte(strings.Repeat("s", jwtx.MinSecretLength))

func TestHS256RoundTrip(t *testing.T) {
	h, err := jwtx.NewHS256(secret, "provision")
	require.NoError(t, err)
	require.Equal(t, "HS256", h.Alg())

	claims := jwtx.NewOperatorClaims("ops", []string{jwtx.ScopeRead, jwtx.ScopeRun}, time.Hour, "", time.Now())
	token, err := h.Sign(claims)
	require.NoError(t, err)

	got, err := h.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "ops", got.Subject)
	require.Equal(t, "provision", got.Issuer)
	require.Equal(t, claims.Scopes, got.Scopes)
}

func TestHS256Rejects(t *testing.T) {
	h, err := jwtx.NewHS256(secret, "provision")
	require.NoError(t, err)

	t.Run("weak secret", func(t *testing.T) {
		_, err := jwtx.NewHS256([]byte("short"), "")
		require.ErrorIs(t, err, jwtx.ErrWeakSecret)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := h.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewHS256([]byte(strings.Repeat("x", 40)), "provision")
		require.NoError(t, err)
		token, err := other.Sign(jwtx.NewOperatorClaims("ops", nil, time.Hour, "", time.Now()))
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := h.Sign(jwtx.NewOperatorClaims("ops", nil, time.Hour, "elsewhere", time.Now()))
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := h.Sign(jwtx.NewOperatorClaims("ops", nil, time.Hour, "", time.Now().Add(-2*time.Hour)))
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		c := jwtx.NewOperatorClaims("ops", nil, time.Hour, "provision", time.Now())
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.Error(t, err)
	})
}
