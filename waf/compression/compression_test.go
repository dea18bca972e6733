package compression

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

var payload = `{"produtos":[` + strings.Repeat(`{"nome":"Minecraft","preco":70},`, 100) + `{}]}`

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
}

func TestNegotiate(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"gzip":              "gzip",
		"gzip, deflate, br": "br",
		"br;q=0, gzip":      "gzip",
		"identity":          "",
		"br;q=0.5":          "br",
	}
	for in, want := range tests {
		if got := Negotiate(in); got != want {
			t.Fatalf("Negotiate(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestBrotli(t *testing.T) {
	h := NewHandler(Config{Enabled: true}).Handle(jsonHandler(payload))
	req := httptest.NewRequest("GET", "/api/produtos", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected br, got %q", rr.Header().Get("Content-Encoding"))
	}
	out, err := io.ReadAll(brotli.NewReader(rr.Body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != payload {
		t.Fatal("expected round trip of body")
	}
}

func TestGzip(t *testing.T) {
	h := NewHandler(Config{Enabled: true}).Handle(jsonHandler(payload))
	req := httptest.NewRequest("GET", "/api/produtos", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("expected gzip body: %v", err)
	}
	out, _ := io.ReadAll(zr)
	if string(out) != payload {
		t.Fatal("expected round trip of body")
	}
}

func TestSmallBodyPassesThrough(t *testing.T) {
	h := NewHandler(Config{Enabled: true}).Handle(jsonHandler(`{"ok":true}`))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "br")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "" {
		t.Fatal("expected small body to stay uncompressed")
	}
	if rr.Body.String() != `{"ok":true}` {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestStatusPreserved(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, payload)
	})
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rr := httptest.NewRecorder()
	NewHandler(Config{Enabled: true}).Handle(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}
