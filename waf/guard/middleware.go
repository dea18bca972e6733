package guard

import (
	"context"
	"net/http"

	"topcompras/waf/respond"
)

type contextKey struct{}

// Middleware rejects requests the guard does not admit. Response headers
// set by earlier middleware (security headers, CORS) are preserved.
func Middleware(g *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.Evaluate(r)
			if !res.Admit {
				Write(w, res)
				return
			}
			ctx := context.WithValue(r.Context(), contextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Protect wraps a single handler func, for routes mounted outside a router
func Protect(g *Guard, next http.HandlerFunc) http.HandlerFunc {
	return Middleware(g)(next).ServeHTTP
}

// Write renders a rejected GateResult
func Write(w http.ResponseWriter, res GateResult) {
	respond.Rejected(w, res.Status, res.RetryAfter, res.Error, res.Message)
}

// FromContext returns the gate result stored by Middleware
func FromContext(ctx context.Context) (GateResult, bool) {
	res, ok := ctx.Value(contextKey{}).(GateResult)
	return res, ok
}

// IdentityFromRequest prefers the identity the guard already resolved
func IdentityFromRequest(r *http.Request) string {
	if res, ok := FromContext(r.Context()); ok && res.Identity != "" {
		return res.Identity
	}
	return ClientIdentity(r)
}
