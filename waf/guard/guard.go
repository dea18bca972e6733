package guard

import (
	"net/http"
	"sync"
	"time"

	"topcompras/waf/metrics"
)

// Outcome is the verdict of a single evaluation
type Outcome int

const (
	OutcomeAdmitted Outcome = iota
	OutcomeBlocked
	OutcomeRateLimited
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBlocked:
		return "blocked"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "admitted"
	}
}

// Suspicious behaviour types recorded against an identity
const (
	SuspicionRateLimit = "rate_limit_exceeded"
	SuspicionBurst     = "ddos_pattern_detected"
	SuspicionAuth      = "admin_auth_failed"
	SuspicionInput     = "malicious_input"
	SuspicionHeaders   = "header_injection"
)

// Client-facing bodies for rejected requests
const (
	ErrAccessDenied    = "Access denied"
	ErrTooManyRequests = "Too many requests"
	MsgBlocked         = "Seu IP foi bloqueado temporariamente por atividade suspeita."
)

// GateResult is what the HTTP layer needs to admit or reject a request
type GateResult struct {
	Admit      bool
	Outcome    Outcome
	Status     int
	RetryAfter int // seconds, 0 when admitted
	Error      string
	Message    string
	Identity   string
	Burst      bool   // burst pattern seen on an admitted request
	Limit      string // "minute" or "hour" when rate limited
	Count      int    // requests counted against Limit
}

// Rules lets operator-managed allow/deny lists short-circuit the guard
type Rules interface {
	Whitelisted(id string) bool
	Banned(id string) (reason string, banned bool)
}

// Guard tracks per-identity request ledgers, suspicion and blocks.
// One instance is shared by every handler for the life of the process.
type Guard struct {
	cfg   *Config
	now   func() time.Time
	rules Rules

	mu        sync.Mutex
	ledger    map[string][]int64 // identity -> request timestamps (ms), oldest first
	suspicion map[string]*SuspicionRecord
	blocked   map[string]struct{}

	listeners []Listener
}

// Option customises a Guard
type Option func(*Guard)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithListener registers a callback for guard events
func WithListener(l Listener) Option {
	return func(g *Guard) {
		if l != nil {
			g.listeners = append(g.listeners, l)
		}
	}
}

// WithRules installs operator whitelist/ban rules
func WithRules(r Rules) Option {
	return func(g *Guard) { g.rules = r }
}

// New builds a guard with empty state
func New(cfg *Config, opts ...Option) *Guard {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.normalize()

	g := &Guard{
		cfg:       &c,
		now:       time.Now,
		ledger:    make(map[string][]int64),
		suspicion: make(map[string]*SuspicionRecord),
		blocked:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns a copy of the active thresholds
func (g *Guard) Config() Config {
	return *g.cfg
}

// Evaluate runs the full gate for an inbound request
func (g *Guard) Evaluate(r *http.Request) GateResult {
	return g.EvaluateIdentity(ClientIdentity(r))
}

// EvaluateIdentity runs the gate for an already resolved identity:
// rules, block registry, rate limiter, then burst detector.
func (g *Guard) EvaluateIdentity(id string) GateResult {
	if res, ok := g.checkRules(id); ok {
		metrics.GuardDecisions.WithLabelValues(res.Outcome.String()).Inc()
		return res
	}

	now := g.now()
	ms := now.UnixMilli()
	var events []Event

	g.mu.Lock()
	blocked, expired := g.isBlocked(id, ms)
	if expired {
		events = append(events, Event{Type: EventBlockExpired, Identity: id, Timestamp: now})
	}

	var res GateResult
	switch {
	case blocked:
		res = g.blockedResult(id)
	default:
		dec := g.checkRateLimit(id, ms)
		if !dec.Allowed {
			events = append(events, Event{
				Type:      EventRateLimit,
				Identity:  id,
				Reason:    dec.Reason,
				Limit:     dec.Limit,
				Count:     dec.Count,
				Timestamp: now,
			})
			events = append(events, g.recordSuspicious(id, SuspicionRateLimit, now)...)
			res = g.limitedResult(id, dec)
			break
		}

		res = GateResult{Admit: true, Outcome: OutcomeAdmitted, Status: http.StatusOK, Identity: id}
		if n := g.burstCount(id, ms); n > g.cfg.BurstLimit {
			res.Burst = true
			events = append(events, Event{
				Type:      EventBurst,
				Identity:  id,
				Count:     n,
				Timestamp: now,
			})
			events = append(events, g.recordSuspicious(id, SuspicionBurst, now)...)
		}
	}
	tracked, blockedCount := len(g.ledger), len(g.blocked)
	g.mu.Unlock()

	metrics.GuardTrackedIdentities.Set(float64(tracked))
	metrics.GuardBlockedIdentities.Set(float64(blockedCount))
	metrics.GuardDecisions.WithLabelValues(res.Outcome.String()).Inc()
	g.emit(events)
	return res
}

func (g *Guard) checkRules(id string) (GateResult, bool) {
	if g.rules == nil {
		return GateResult{}, false
	}
	if g.rules.Whitelisted(id) {
		return GateResult{Admit: true, Outcome: OutcomeAdmitted, Status: http.StatusOK, Identity: id}, true
	}
	if reason, banned := g.rules.Banned(id); banned {
		metrics.RuleBlocks.Inc()
		g.emit([]Event{{Type: EventRuleBlock, Identity: id, Reason: reason, Timestamp: g.now()}})
		return g.blockedResult(id), true
	}
	return GateResult{}, false
}

func (g *Guard) blockedResult(id string) GateResult {
	return GateResult{
		Outcome:    OutcomeBlocked,
		Status:     http.StatusForbidden,
		RetryAfter: g.cfg.BlockedRetryAfter,
		Error:      ErrAccessDenied,
		Message:    MsgBlocked,
		Identity:   id,
	}
}

func (g *Guard) limitedResult(id string, dec RateDecision) GateResult {
	return GateResult{
		Outcome:    OutcomeRateLimited,
		Status:     http.StatusTooManyRequests,
		RetryAfter: g.cfg.LimitRetryAfter,
		Error:      ErrTooManyRequests,
		Message:    dec.Reason,
		Identity:   id,
		Limit:      dec.Limit,
		Count:      dec.Count,
	}
}

// emit must be called without g.mu held
func (g *Guard) emit(events []Event) {
	for _, ev := range events {
		if ev.Type == EventSuspicious {
			metrics.GuardSuspiciousEvents.WithLabelValues(ev.Reason).Inc()
		}
		for _, l := range g.listeners {
			l(ev)
		}
	}
}
