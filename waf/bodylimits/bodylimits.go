// Package bodylimits caps request body sizes per path
package bodylimits

import (
	"fmt"
	"net/http"
	"path/filepath"

	"topcompras/waf/respond"
)

// DefaultLimit fits any storefront JSON document
const DefaultLimit int64 = 16 * 1024

const ErrTooLarge = "Payload muito grande"

type Config struct {
	GlobalLimit int64
	// PathLimits overrides GlobalLimit for paths matching a filepath.Match
	// pattern
	PathLimits map[string]int64
}

type Limiter struct {
	config Config
}

func NewLimiter(config Config) *Limiter {
	if config.PathLimits == nil {
		config.PathLimits = make(map[string]int64)
	}
	if config.GlobalLimit <= 0 {
		config.GlobalLimit = DefaultLimit
	}
	return &Limiter{config: config}
}

// Limit returns the body limit for path
func (l *Limiter) Limit(path string) int64 {
	for pattern, limit := range l.config.PathLimits {
		if matched, _ := filepath.Match(pattern, path); matched {
			return limit
		}
	}
	return l.config.GlobalLimit
}

// Check rejects requests whose declared Content-Length exceeds the limit
func (l *Limiter) Check(r *http.Request) (bool, string) {
	if r.Body == nil || r.Body == http.NoBody {
		return true, ""
	}
	limit := l.Limit(r.URL.Path)
	if r.ContentLength > limit {
		return false, fmt.Sprintf("request body too large: %d bytes (limit: %d bytes)", r.ContentLength, limit)
	}
	return true, ""
}

// Middleware answers 413 for oversized declared bodies and caps the reader
// for chunked ones, so decoders fail with *http.MaxBytesError
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, reason := l.Check(r); !ok {
			respond.Error(w, http.StatusRequestEntityTooLarge, ErrTooLarge, reason)
			return
		}
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, l.Limit(r.URL.Path))
		}
		next.ServeHTTP(w, r)
	})
}
