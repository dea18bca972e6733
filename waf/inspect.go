package waf

import (
	"log"
	"net/http"

	"topcompras/waf/guard"
	"topcompras/waf/respond"
	"topcompras/waf/sanitize"
)

// MsgBadHeaders is the body of a request rejected for its headers
const MsgBadHeaders = "Cabeçalhos inválidos"

// Suspicion receives flagged requests
type Suspicion interface {
	RecordSuspicious(id, eventType string)
}

// Inspect screens requests before they reach a handler. Malformed or
// injected headers are rejected; injection patterns in the path or query
// only count against the caller since handlers sanitize what they use.
// JSON bodies are inspected by the handlers that decode them.
func Inspect(s Suspicion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := guard.IdentityFromRequest(r)

			// validate headers first (prevents header injection)
			if valid, reason := sanitize.ValidateHeaders(r); !valid {
				log.Printf("[INSPECT] %s rejected: %s", id, reason)
				if s != nil {
					s.RecordSuspicious(id, guard.SuspicionHeaders)
				}
				respond.Error(w, http.StatusBadRequest, MsgBadHeaders, "")
				return
			}

			if s != nil && sanitize.RequestIsMalicious(r) {
				log.Printf("[INSPECT] %s sent an injection pattern in %s", id, r.URL.Path)
				s.RecordSuspicious(id, guard.SuspicionInput)
			}
			next.ServeHTTP(w, r)
		})
	}
}
