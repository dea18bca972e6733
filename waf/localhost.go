package waf

import (
	"net"
	"net/http"

	"topcompras/waf/respond"
)

// IsLoopback reports whether the TCP peer of r is 127.0.0.1 or ::1.
// Forwarding headers are ignored on purpose.
func IsLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// LocalhostOnly restricts operational endpoints to the local machine
func LocalhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsLoopback(r) {
			respond.Error(w, http.StatusForbidden, "Forbidden", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
