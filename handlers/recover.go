package handlers

import (
	"log"
	"net/http"
	"runtime/debug"

	"topcompras/waf/requestid"
	"topcompras/waf/respond"
)

// Recover turns a panic in next into a 500 JSON response
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("[HTTP] panic in %s %s (id %s): %v\n%s",
					r.Method, r.URL.Path, requestid.FromRequest(r), rec, debug.Stack())
				respond.Error(w, http.StatusInternalServerError, "Erro interno do servidor", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
