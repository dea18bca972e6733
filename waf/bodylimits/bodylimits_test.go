package bodylimits

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLimit(t *testing.T) {
	l := NewLimiter(Config{PathLimits: map[string]int64{"/api/feedbacks": 4096}})
	if got := l.Limit("/api/vendas"); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := l.Limit("/api/feedbacks"); got != 4096 {
		t.Fatalf("expected 4096, got %d", got)
	}
}

func TestMiddleware(t *testing.T) {
	l := NewLimiter(Config{GlobalLimit: 10})
	var readErr error
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/vendas", strings.NewReader(`{"a":1}`)))
	if rec.Code != http.StatusNoContent || readErr != nil {
		t.Fatalf("expected small body to pass, got %d (%v)", rec.Code, readErr)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/vendas", strings.NewReader(strings.Repeat("x", 50))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}

	// unknown length is capped while reading
	req := httptest.NewRequest("POST", "/api/vendas", io.NopCloser(strings.NewReader(strings.Repeat("x", 50))))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if readErr == nil {
		t.Fatal("expected read error past the limit")
	}
}
