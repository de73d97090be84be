package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/pkg/httpx"
	"github.com/aussiebroadwan/provision/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestAuthnAndScopes(t *testing.T) {
	signer, err := jwtx.NewHS256([]byte(strings.Repeat("k", jwtx.MinSecretLength)), "provision")
	require.NoError(t, err)

	var operator string
	h := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator = httpx.OperatorFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
		httpx.AuthnMiddleware(signer),
		httpx.RequireAnyScope(jwtx.ScopeRun),
	)

	mint := func(scopes ...string) string {
		token, err := signer.Sign(jwtx.NewOperatorClaims("ops", scopes, time.Hour, "", time.Now()))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing token", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing scope", header: "Bearer " + mint(jwtx.ScopeRead), want: http.StatusForbidden},
		{name: "ok", header: "Bearer " + mint(jwtx.ScopeRead, jwtx.ScopeRun), want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
			}
		})
	}
	require.Equal(t, "ops", operator)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}
