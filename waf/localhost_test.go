package waf

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocalhostOnly(t *testing.T) {
	tests := []struct {
		remote string
		xff    string
		want   int
	}{
		{"127.0.0.1:5000", "", http.StatusOK},
		{"[::1]:5000", "", http.StatusOK},
		{"192.168.1.1:1234", "", http.StatusForbidden},
		{"192.168.1.1:1234", "127.0.0.1", http.StatusForbidden},
		{"garbage", "", http.StatusForbidden},
	}

	h := LocalhostOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/metrics", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.remote, tt.want, rr.Code)
		}
	}
}
