package guard

import (
	"sort"
	"time"
)

// BlockedIdentity is a row in the admin view of live blocks
type BlockedIdentity struct {
	Identity     string    `json:"identity"`
	BlockedUntil time.Time `json:"blocked_until"`
	Count        int       `json:"suspicion_count"`
	LastReason   string    `json:"last_reason,omitempty"`
}

// Stats summarises guard state. Stale blocks are reported as not blocked
// but are left for the lazy cleanup in IsBlocked.
func (g *Guard) Stats() map[string]interface{} {
	now := g.now().UnixMilli()

	g.mu.Lock()
	defer g.mu.Unlock()

	live := 0
	for id := range g.blocked {
		if rec := g.suspicion[id]; rec != nil && now < rec.BlockedUntil {
			live++
		}
	}

	return map[string]interface{}{
		"tracked_identities":    len(g.ledger),
		"suspicious_identities": len(g.suspicion),
		"blocked_identities":    live,
		"limits": map[string]interface{}{
			"per_minute":        g.cfg.MinuteLimit,
			"per_hour":          g.cfg.HourLimit,
			"burst_threshold":   g.cfg.BurstLimit,
			"burst_window_sec":  int(g.cfg.BurstWindow / time.Second),
			"suspicion_max":     g.cfg.SuspicionMax,
			"block_duration_s":  int(g.cfg.BlockDuration / time.Second),
			"history_limit":     g.cfg.HistoryLimit,
			"blocked_retry_sec": g.cfg.BlockedRetryAfter,
			"limited_retry_sec": g.cfg.LimitRetryAfter,
		},
	}
}

// IdentityInfo returns what the guard knows about one identity
func (g *Guard) IdentityInfo(id string) map[string]interface{} {
	now := g.now().UnixMilli()

	g.mu.Lock()
	defer g.mu.Unlock()

	entries, tracked := g.ledger[id]
	rec, suspicious := g.suspicion[id]
	if !tracked && !suspicious {
		return map[string]interface{}{"exists": false}
	}

	info := map[string]interface{}{
		"exists":               true,
		"requests_last_minute": g.countSince(id, now-g.cfg.MinuteWindow.Milliseconds()),
		"requests_last_hour":   g.countSince(id, now-g.cfg.HourWindow.Milliseconds()),
		"requests_last_burst":  g.countSince(id, now-g.cfg.BurstWindow.Milliseconds()),
		"ledger_size":          len(entries),
		"blocked":              false,
	}
	if rec != nil {
		_, inSet := g.blocked[id]
		info["suspicion_count"] = rec.Count
		info["history"] = append([]BehaviorEvent(nil), rec.History...)
		info["blocked"] = inSet && now < rec.BlockedUntil
		if rec.BlockedUntil > 0 {
			info["blocked_until"] = time.UnixMilli(rec.BlockedUntil).UTC().Format(time.RFC3339)
		}
	}
	return info
}

// BlockedIdentities lists live blocks, soonest expiry first
func (g *Guard) BlockedIdentities() []BlockedIdentity {
	now := g.now().UnixMilli()

	g.mu.Lock()
	out := make([]BlockedIdentity, 0, len(g.blocked))
	for id := range g.blocked {
		rec := g.suspicion[id]
		if rec == nil || now >= rec.BlockedUntil {
			continue
		}
		row := BlockedIdentity{
			Identity:     id,
			BlockedUntil: time.UnixMilli(rec.BlockedUntil).UTC(),
			Count:        rec.Count,
		}
		if n := len(rec.History); n > 0 {
			row.LastReason = rec.History[n-1].Type
		}
		out = append(out, row)
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].BlockedUntil.Before(out[j].BlockedUntil)
	})
	return out
}

// LedgerLen returns the number of timestamps currently held for id
func (g *Guard) LedgerLen(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ledger[id])
}

// SuspicionCount returns the accumulated count for id, 0 when absent
func (g *Guard) SuspicionCount(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec := g.suspicion[id]; rec != nil {
		return rec.Count
	}
	return 0
}
