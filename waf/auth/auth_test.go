package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"topcompras/waf/guard"
)

type suspicionRecorder struct {
	calls []string
}

func (s *suspicionRecorder) RecordSuspicious(id, eventType string) {
	s.calls = append(s.calls, id+":"+eventType)
}

func newTestAdmin(t *testing.T, rec Suspicion) *Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := NewAdmin(Config{
		PasswordHash: string(hash),
		JWTSecret:    "test-secret",
		LoginBurst:   3,
		LoginEvery:   time.Hour,
	}, rec)
	if err != nil {
		t.Fatalf("NewAdmin: %v", err)
	}
	return a
}

func login(a *Admin, ip, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/admin/login", strings.NewReader(`{"password":"`+password+`"}`))
	req.Header.Set("X-Forwarded-For", ip)
	rr := httptest.NewRecorder()
	a.Login(rr, req)
	return rr
}

func TestLoginIssuesToken(t *testing.T) {
	a := newTestAdmin(t, nil)

	rr := login(a, "10.0.0.1", "segredo")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("expected token, got %+v", resp)
	}

	req := httptest.NewRequest("PUT", "/api/vendas", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	if !a.Authorized(req) {
		t.Fatal("expected issued token to authorize")
	}
}

func TestLoginFailureRecordsSuspicion(t *testing.T) {
	rec := &suspicionRecorder{}
	a := newTestAdmin(t, rec)

	rr := login(a, "10.0.0.2", "errada")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "10.0.0.2:"+guard.SuspicionAuth {
		t.Fatalf("expected one auth suspicion, got %v", rec.calls)
	}
}

func TestLoginThrottled(t *testing.T) {
	a := newTestAdmin(t, nil)

	for i := 0; i < 3; i++ {
		login(a, "10.0.0.3", "errada")
	}
	rr := login(a, "10.0.0.3", "segredo")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}

	// other identities keep their own bucket
	if rr := login(a, "10.0.0.4", "segredo"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for another identity, got %d", rr.Code)
	}
}

func TestLoginDisabled(t *testing.T) {
	a, err := NewAdmin(Config{}, nil)
	if err != nil {
		t.Fatalf("NewAdmin: %v", err)
	}
	if a.Enabled() {
		t.Fatal("expected admin disabled without hash")
	}
	if rr := login(a, "10.0.0.5", "qualquer"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if !a.Authorized(httptest.NewRequest("PUT", "/api/vendas", nil)) {
		t.Fatal("expected open writes when admin disabled")
	}
}

func TestNewAdminRejectsPlainPassword(t *testing.T) {
	if _, err := NewAdmin(Config{PasswordHash: "segredo", JWTSecret: "x"}, nil); err == nil {
		t.Fatal("expected error for non-bcrypt hash")
	}
}

func TestRequireAdmin(t *testing.T) {
	a := newTestAdmin(t, nil)
	token, _, err := a.tokens.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := a.RequireAdmin(next)

	tests := []struct {
		name   string
		method string
		auth   string
		want   int
	}{
		{"no token", "DELETE", "", http.StatusUnauthorized},
		{"garbage", "DELETE", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "DELETE", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "PUT", "bearer " + token, http.StatusNoContent},
		{"preflight", "OPTIONS", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/feedbacks", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestTokenExpiry(t *testing.T) {
	tokens, err := NewTokens("s", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	tok, exp, err := tokens.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry %v, got %v", now.Add(time.Hour), exp)
	}

	now = now.Add(2 * time.Hour)
	if _, err := tokens.Validate(tok); err == nil {
		t.Fatal("expected expired token to fail")
	}

	other, _ := NewTokens("other", time.Hour)
	other.now = tokens.now
	tok, _, _ = other.Issue("admin")
	if _, err := tokens.Validate(tok); err == nil {
		t.Fatal("expected token signed with another secret to fail")
	}
}

func TestThrottleCleanup(t *testing.T) {
	th := NewThrottle(time.Second, 1)
	th.idleTTL = -time.Second
	th.Allow("a")
	th.Allow("b")
	if th.Tracked() != 2 {
		t.Fatalf("expected 2 tracked, got %d", th.Tracked())
	}
	th.Cleanup()
	if th.Tracked() != 0 {
		t.Fatalf("expected cleanup to drop idle entries, got %d", th.Tracked())
	}
}
