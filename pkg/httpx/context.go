package httpx

import (
	"context"
	"net/http"
)

type ctxKey string

const CtxKeyPrincipal ctxKey = "principal"

// WithPrincipalKey records a stable caller key (e.g. "user:<id>") for
// per-caller rate limiting.
func WithPrincipalKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, CtxKeyPrincipal, key)
}

func PrincipalKey(r *http.Request) string {
	if v, ok := r.Context().Value(CtxKeyPrincipal).(string); ok {
		return v
	}
	return ""
}
