package guard

import (
	"fmt"
	"time"
)

const (
	LimitMinute = "minute"
	LimitHour   = "hour"
)

// RateDecision is the rate limiter verdict for one request
type RateDecision struct {
	Allowed bool
	Reason  string
	Limit   string
	Count   int
}

// CheckRateLimit records a request for id and checks it against the
// per-minute and per-hour ceilings. The request is appended to the ledger
// even when it is rejected.
func (g *Guard) CheckRateLimit(id string) RateDecision {
	ms := g.now().UnixMilli()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkRateLimit(id, ms)
}

// DetectBurst reports whether id sent more than BurstLimit requests in
// the burst window. It does not record anything.
func (g *Guard) DetectBurst(id string) bool {
	ms := g.now().UnixMilli()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.burstCount(id, ms) > g.cfg.BurstLimit
}

// checkRateLimit must be called with g.mu held.
// The minute count is taken before the append, the hour count after it.
func (g *Guard) checkRateLimit(id string, now int64) RateDecision {
	hourAgo := now - g.cfg.HourWindow.Milliseconds()
	minuteAgo := now - g.cfg.MinuteWindow.Milliseconds()

	entries := g.ledger[id]
	kept := entries[:0]
	perMinute := 0
	for _, ts := range entries {
		if ts > hourAgo {
			kept = append(kept, ts)
			if ts > minuteAgo {
				perMinute++
			}
		}
	}
	kept = append(kept, now)
	g.ledger[id] = kept

	if perMinute >= g.cfg.MinuteLimit {
		return RateDecision{
			Reason: fmt.Sprintf("Rate limit exceeded: %d requests in %s", perMinute, describeWindow(g.cfg.MinuteWindow)),
			Limit:  LimitMinute,
			Count:  perMinute,
		}
	}
	if len(kept) >= g.cfg.HourLimit {
		return RateDecision{
			Reason: fmt.Sprintf("Rate limit exceeded: %d requests in %s", len(kept), describeWindow(g.cfg.HourWindow)),
			Limit:  LimitHour,
			Count:  len(kept),
		}
	}
	return RateDecision{Allowed: true, Count: len(kept)}
}

// burstCount must be called with g.mu held
func (g *Guard) burstCount(id string, now int64) int {
	return g.countSince(id, now-g.cfg.BurstWindow.Milliseconds())
}

// countSince must be called with g.mu held
func (g *Guard) countSince(id string, since int64) int {
	n := 0
	for _, ts := range g.ledger[id] {
		if ts > since {
			n++
		}
	}
	return n
}

// describeWindow renders 1m as "1 minute", 1h as "1 hour"
func describeWindow(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	case d%time.Second == 0:
		return plural(int(d/time.Second), "second")
	}
	return d.String()
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
