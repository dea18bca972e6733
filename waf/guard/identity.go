package guard

import (
	"net/http"
	"strings"
)

// UnknownIdentity is the shared bucket for clients with no usable header
const UnknownIdentity = "unknown"

// identityHeaders are consulted in order, first non-empty value wins
var identityHeaders = []string{
	"X-Client-IP",
	"CF-Connecting-IP",
	"X-Real-IP",
}

// ClientIdentity extracts the client key from proxy headers.
// Values are not validated as IPs; anything non-empty is accepted.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	for _, h := range identityHeaders {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	return UnknownIdentity
}
