package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"topcompras/waf/guard"
	"topcompras/waf/metrics"
	"topcompras/waf/respond"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Response messages
const (
	ErrUnauthorized   = "Não autorizado"
	MsgBadPassword    = "Senha inválida"
	MsgAdminDisabled  = "Área administrativa desabilitada"
	MsgTooManyLogins  = "Muitas tentativas de login. Tente novamente em instantes."
	MsgInvalidSession = "Sessão inválida ou expirada"
)

// Config holds admin authentication configuration
type Config struct {
	PasswordHash string // bcrypt hash; empty disables admin login
	JWTSecret    string
	TokenTTL     time.Duration // default 12h
	// login attempts: LoginBurst at once, then one per LoginEvery
	LoginEvery time.Duration
	LoginBurst int
}

// Suspicion receives failed login attempts
type Suspicion interface {
	RecordSuspicious(id, eventType string)
}

// Admin guards the write endpoints of the storefront
type Admin struct {
	hash      []byte
	tokens    *Tokens
	throttle  *Throttle
	suspicion Suspicion
}

// NewAdmin returns a disabled Admin when no password hash is configured
func NewAdmin(cfg Config, suspicion Suspicion) (*Admin, error) {
	a := &Admin{
		throttle:  NewThrottle(cfg.LoginEvery, cfg.LoginBurst),
		suspicion: suspicion,
	}
	if cfg.PasswordHash == "" {
		return a, nil
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash")
	}
	tokens, err := NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	a.hash = []byte(cfg.PasswordHash)
	a.tokens = tokens
	return a, nil
}

// Enabled reports whether admin login is configured
func (a *Admin) Enabled() bool {
	return a != nil && a.tokens != nil
}

// Throttle exposes the login throttle, mainly for its janitor
func (a *Admin) Throttle() *Throttle {
	return a.throttle
}

// Check compares a password with the configured hash
func (a *Admin) Check(password string) error {
	if !a.Enabled() {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

type loginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Login handles POST /api/admin/login
func (a *Admin) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w)
		return
	}
	if !a.Enabled() {
		respond.Error(w, http.StatusUnauthorized, ErrUnauthorized, MsgAdminDisabled)
		return
	}

	id := guard.IdentityFromRequest(r)
	if !a.throttle.Allow(id) {
		metrics.AdminLogins.WithLabelValues("throttled").Inc()
		respond.Rejected(w, http.StatusTooManyRequests, 60, guard.ErrTooManyRequests, MsgTooManyLogins)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "JSON inválido", "")
		return
	}

	if err := a.Check(req.Password); err != nil {
		metrics.AdminLogins.WithLabelValues("failure").Inc()
		log.Printf("[AUTH] failed admin login from %s", id)
		if a.suspicion != nil {
			a.suspicion.RecordSuspicious(id, guard.SuspicionAuth)
		}
		respond.Error(w, http.StatusUnauthorized, ErrUnauthorized, MsgBadPassword)
		return
	}

	token, exp, err := a.tokens.Issue("admin")
	if err != nil {
		respond.Internal(w, err)
		return
	}
	metrics.AdminLogins.WithLabelValues("success").Inc()
	log.Printf("[AUTH] admin login from %s", id)
	respond.JSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
	})
}

// Authorized reports whether r carries a valid admin token. With admin
// login disabled every request is authorized.
func (a *Admin) Authorized(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	_, err := a.tokens.Validate(extractToken(r))
	return err == nil
}

// RequireAdmin rejects requests without a valid bearer token
func (a *Admin) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions && !a.Authorized(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="topcompras"`)
			respond.Error(w, http.StatusUnauthorized, ErrUnauthorized, MsgInvalidSession)
			return
		}
		next.ServeHTTP(w, r)
	})
}
