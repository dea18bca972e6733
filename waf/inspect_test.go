package waf

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type suspicionLog map[string][]string

func (s suspicionLog) RecordSuspicious(id, eventType string) {
	s[id] = append(s[id], eventType)
}

func TestInspect(t *testing.T) {
	seen := suspicionLog{}
	reached := 0
	h := Inspect(seen)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
	}))

	req := httptest.NewRequest("GET", "/api/produtos?categoria=Jogos", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || reached != 1 {
		t.Fatalf("expected clean request to pass, got %d", rr.Code)
	}
	if len(seen) != 0 {
		t.Fatalf("expected no suspicion, got %v", seen)
	}

	req = httptest.NewRequest("GET", "/checkout?produto=%27%20OR%201%3D1--", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.2")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || reached != 2 {
		t.Fatalf("expected injected query to pass through, got %d", rr.Code)
	}
	if got := seen["203.0.113.2"]; len(got) != 1 || got[0] != "malicious_input" {
		t.Fatalf("expected one malicious_input suspicion, got %v", got)
	}

	req = httptest.NewRequest("POST", "/api/vendas", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.3")
	req.Header["X-Evil"] = []string{"a\r\nSet-Cookie: x=1"}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for header injection, got %d", rr.Code)
	}
	if reached != 2 {
		t.Fatal("expected handler not to run for rejected headers")
	}
	if got := seen["203.0.113.3"]; len(got) != 1 || got[0] != "header_injection" {
		t.Fatalf("expected one header_injection suspicion, got %v", got)
	}
}
