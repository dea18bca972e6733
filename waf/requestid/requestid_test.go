package requestid

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareGeneratesID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	})

	rr := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rr, httptest.NewRequest("GET", "/api/vendas", nil))

	if len(seen) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected response header %q, got %q", seen, rr.Header().Get(RequestIDHeader))
	}
}

func TestMiddlewareKeepsUpstreamID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "edge-123")

	rr := httptest.NewRecorder()
	Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "edge-123" {
		t.Fatalf("expected edge-123, got %q", got)
	}
}

func TestLoggerPassesStatusThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h := Logger(func(*http.Request) string { return "/api/vendas" })(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/vendas", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}

type hijackWriter struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestLoggerKeepsHijacker(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := w.(http.Hijacker)
		if !ok {
			t.Fatalf("expected writer to implement http.Hijacker")
		}
		if _, _, err := h.Hijack(); err != nil {
			t.Fatalf("expected hijack to succeed, got %v", err)
		}
	})

	hw := &hijackWriter{ResponseRecorder: httptest.NewRecorder()}
	Logger(func(r *http.Request) string { return "/api/live" })(next).ServeHTTP(hw, httptest.NewRequest("GET", "/api/live", nil))

	if !hw.hijacked {
		t.Fatalf("expected underlying writer to be hijacked")
	}
}

func TestLoggerHijackWithoutSupport(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := w.(http.Hijacker).Hijack(); err == nil {
			t.Fatalf("expected error from recorder without hijack support")
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	rr := httptest.NewRecorder()
	Logger(func(r *http.Request) string { return "/api/live" })(next).ServeHTTP(rr, httptest.NewRequest("GET", "/api/live", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
