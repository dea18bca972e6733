package cors

import (
	"net/http"
	"net/url"
	"strings"

	"topcompras/waf/respond"
)

// ErrNotAllowed is the error body sent to foreign origins
const ErrNotAllowed = "CORS not allowed"

type Config struct {
	Enabled bool
	// AllowedHosts are bare hostnames, compared against the Origin (or
	// Referer) hostname. "*" admits everything.
	AllowedHosts []string
}

type Handler struct {
	config Config
	hosts  map[string]bool
}

func NewHandler(config Config) *Handler {
	h := &Handler{config: config, hosts: make(map[string]bool)}
	for _, host := range config.AllowedHosts {
		h.hosts[strings.ToLower(strings.TrimSpace(host))] = true
	}
	return h
}

// HostOf returns the lowercase hostname of a URL, or "" when it does not parse
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Allows reports whether the host of origin is on the allowed list
func (h *Handler) Allows(origin string) bool {
	if h.hosts["*"] {
		return true
	}
	return h.hosts[HostOf(origin)]
}

// Handle validates the caller origin and answers preflights. It returns true
// when the response has been written.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	if !h.config.Enabled {
		return false
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	// requests without either header come from curl, server side renders, etc
	if origin == "" || h.Allows(origin) {
		return false
	}

	respond.Error(w, http.StatusForbidden, ErrNotAllowed, "")
	return true
}

func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Handle(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}
