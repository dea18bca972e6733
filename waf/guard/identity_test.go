package guard

import (
	"net/http/httptest"
	"testing"
)

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded-for first hop", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "203.0.113.7"},
		{"forwarded-for wins over others", map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "2.2.2.2"}, "1.1.1.1"},
		{"client ip", map[string]string{"X-Client-IP": "3.3.3.3", "X-Real-IP": "4.4.4.4"}, "3.3.3.3"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "5.5.5.5", "X-Real-IP": "6.6.6.6"}, "5.5.5.5"},
		{"real ip", map[string]string{"X-Real-IP": "7.7.7.7"}, "7.7.7.7"},
		{"lowercase header names", map[string]string{"x-real-ip": "8.8.8.8"}, "8.8.8.8"},
		{"empty first hop falls through", map[string]string{"X-Forwarded-For": " , 9.9.9.9", "X-Real-IP": "7.7.7.7"}, "7.7.7.7"},
		{"not validated", map[string]string{"X-Client-IP": "not-an-ip"}, "not-an-ip"},
		{"nothing usable", nil, UnknownIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/vendas", nil)
			req.RemoteAddr = "192.168.1.1:1234"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIdentity(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUnknownClientsShareABucket(t *testing.T) {
	g, _, _ := newTestGuard(nil)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/feedbacks", nil)
		req.RemoteAddr = "192.168.1." + string(rune('1'+i)) + ":1234"
		g.Evaluate(req)
	}
	if got := g.LedgerLen(UnknownIdentity); got != 3 {
		t.Fatalf("expected 3 requests in the unknown bucket, got %d", got)
	}
}
