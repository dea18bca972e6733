package sanitize

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Minecraft", "Minecraft"},
		{"trim", "  Netflix  ", "Netflix"},
		{"angle brackets", "<b>Steam</b>", "bSteam/b"},
		{"script tag", "<script>alert(1)</script>", "scriptalert(1)/script"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Input(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInputTruncatesRunes(t *testing.T) {
	long := strings.Repeat("ç", MaxInputLength+20)
	got := Input(long)
	if n := len([]rune(got)); n != MaxInputLength {
		t.Fatalf("expected %d runes, got %d", MaxInputLength, n)
	}
}

func TestEmail(t *testing.T) {
	valid := []string{"cliente@topcompras.com", "a@b.co", "nome.sobrenome+tag@mail.com.br"}
	invalid := []string{"", "sem-arroba", "a@b", "a @b.com", "@b.com"}

	for _, e := range valid {
		if !Email(e) {
			t.Fatalf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if Email(e) {
			t.Fatalf("expected %q to be invalid", e)
		}
	}
}

func TestIsMalicious(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Ótimo atendimento, recomendo!", false},
		{"Comprei 2 vezes or 3 vezes", false},
		{"<script>alert(1)</script>", true},
		{"<img src=x onerror=alert(1)>", true},
		{"' OR '1'='1", true},
		{"1 UNION SELECT password FROM users", true},
		{"x'; DROP TABLE vendas;--", true},
		{"or 1=1", true},
	}

	for _, tt := range tests {
		if got := IsMalicious(tt.in); got != tt.want {
			t.Fatalf("IsMalicious(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestRequestIsMalicious(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/produtos?categoria=Jogos", nil)
	if RequestIsMalicious(req) {
		t.Fatal("expected clean request")
	}

	req = httptest.NewRequest("GET", "/api/produtos?categoria=%27%20OR%201%3D1--", nil)
	if !RequestIsMalicious(req) {
		t.Fatal("expected injection in query to be flagged")
	}
}

func TestValidateHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/vendas", nil)
	req.Header.Set("Content-Type", "application/json")
	if ok, reason := ValidateHeaders(req); !ok {
		t.Fatalf("expected valid headers, got %q", reason)
	}

	req.Header["X-Evil"] = []string{"a\r\nSet-Cookie: x=1"}
	if ok, _ := ValidateHeaders(req); ok {
		t.Fatal("expected header injection to be rejected")
	}

	req = httptest.NewRequest("POST", "/api/vendas", nil)
	req.Header.Set("Content-Length", "10")
	req.Header.Set("Transfer-Encoding", "chunked")
	if ok, _ := ValidateHeaders(req); ok {
		t.Fatal("expected conflicting framing headers to be rejected")
	}
}
