package respond

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// ErrorBody is the JSON shape of every error the API returns
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// JSON writes v with the given status. Headers already set on w are kept.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] failed to encode response: %v", err)
	}
}

// Error writes an {error, message} body
func Error(w http.ResponseWriter, status int, errMsg, message string) {
	JSON(w, status, ErrorBody{Error: errMsg, Message: message})
}

// Rejected writes a guard rejection with its Retry-After hint
func Rejected(w http.ResponseWriter, status, retryAfter int, errMsg, message string) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	JSON(w, status, ErrorBody{Error: errMsg, Message: message})
}

// MethodNotAllowed is the shared 405 for storefront routes
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "Método não permitido", "")
}

// Internal renders a 500 without leaking details
func Internal(w http.ResponseWriter, err error) {
	log.Printf("[HTTP] internal error: %v", err)
	Error(w, http.StatusInternalServerError, "Erro interno do servidor", "")
}
