// Package cache sets Cache-Control on responses by path
package cache

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

type Rule struct {
	Pattern string // filepath.Match syntax; first matching rule wins
	MaxAge  int
	NoCache bool
	NoStore bool
	Public  bool
	Private bool
}

// Value renders the Cache-Control header for the rule
func (r Rule) Value() string {
	var parts []string

	if r.NoCache {
		parts = append(parts, "no-cache")
	}
	if r.NoStore {
		parts = append(parts, "no-store")
	}
	if r.Public {
		parts = append(parts, "public")
	}
	if r.Private {
		parts = append(parts, "private")
	}
	if r.MaxAge > 0 && !r.NoCache && !r.NoStore {
		parts = append(parts, fmt.Sprintf("max-age=%d", r.MaxAge))
	}
	return strings.Join(parts, ", ")
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

// StorefrontRules lets browsers and CDNs keep the product listing for a
// minute while live counters and redirects are never stored
func StorefrontRules() []Rule {
	return []Rule{
		{Pattern: "/api/produtos", Public: true, MaxAge: 60},
		{Pattern: "/api/*", NoStore: true},
		{Pattern: "/checkout", NoStore: true},
	}
}

func (h *Handler) getRule(path string) *Rule {
	for i := range h.config.Rules {
		if matched, _ := filepath.Match(h.config.Rules[i].Pattern, path); matched {
			return &h.config.Rules[i]
		}
	}
	return nil
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if !h.config.Enabled {
		return
	}
	rule := h.getRule(r.URL.Path)
	if rule == nil {
		return
	}
	if v := rule.Value(); v != "" {
		w.Header().Set("Cache-Control", v)
	}
}

// Middleware sets the header before next runs; a handler may still override it
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Apply(w, r)
		next.ServeHTTP(w, r)
	})
}
