package httpx

import (
	"context"

	"github.com/aussiebroadwan/provision/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyOperator ctxKey = "operator"
	CtxKeyScopes   ctxKey = "scopes"
	CtxKeyClaims   ctxKey = "claims"
)

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyOperator, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// OperatorFromContext returns the authenticated operator, if any.
func OperatorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyOperator).(string)
	return v
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
