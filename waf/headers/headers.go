package headers

import (
	"net/http"
	"path/filepath"
)

// DefaultAllowedDomain is the storefront origin used when ALLOWED_DOMAIN is unset
const DefaultAllowedDomain = "https://top-compras.netlify.app"

type Operation string

const (
	OpAdd    Operation = "add"
	OpSet    Operation = "set"
	OpRemove Operation = "remove"
)

// Rule applies one header operation to responses whose path matches Path
// (filepath.Match syntax, empty matches everything)
type Rule struct {
	Path      string
	Operation Operation
	Header    string
	Value     string
}

type Config struct {
	Enabled bool
	Rules   []Rule
}

type Handler struct {
	config Config
}

func NewHandler(config Config) *Handler {
	return &Handler{config: config}
}

// SecureRules is the header set every API response carries
func SecureRules(allowedDomain string) []Rule {
	if allowedDomain == "" {
		allowedDomain = DefaultAllowedDomain
	}
	set := func(k, v string) Rule { return Rule{Operation: OpSet, Header: k, Value: v} }
	return []Rule{
		set("Content-Type", "application/json"),
		set("Access-Control-Allow-Origin", allowedDomain),
		set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS"),
		set("Access-Control-Allow-Headers", "Content-Type, Authorization"),
		set("Access-Control-Max-Age", "86400"),
		set("X-Content-Type-Options", "nosniff"),
		set("X-Frame-Options", "DENY"),
		set("X-XSS-Protection", "1; mode=block"),
	}
}

// Secure builds a handler with the secure API header set followed by extra rules
func Secure(allowedDomain string, extra ...Rule) *Handler {
	return NewHandler(Config{
		Enabled: true,
		Rules:   append(SecureRules(allowedDomain), extra...),
	})
}

func (h *Handler) ApplyResponse(w http.ResponseWriter, path string) {
	if !h.config.Enabled {
		return
	}

	for _, rule := range h.config.Rules {
		if rule.Path != "" {
			matched, _ := filepath.Match(rule.Path, path)
			if !matched {
				continue
			}
		}

		switch rule.Operation {
		case OpAdd:
			w.Header().Add(rule.Header, rule.Value)
		case OpSet:
			w.Header().Set(rule.Header, rule.Value)
		case OpRemove:
			w.Header().Del(rule.Header)
		}
	}
}

// Middleware sets the response headers before the next handler runs, so
// rejections written further down the chain carry them too
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ApplyResponse(w, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
