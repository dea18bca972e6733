package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle hands out a token bucket per identity for login attempts
type Throttle struct {
	mu      sync.Mutex
	entries map[string]*throttleEntry
	every   time.Duration
	burst   int
	idleTTL time.Duration
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows burst attempts, then one per every
func NewThrottle(every time.Duration, burst int) *Throttle {
	if every <= 0 {
		every = 12 * time.Second
	}
	if burst <= 0 {
		burst = 5
	}
	return &Throttle{
		entries: make(map[string]*throttleEntry),
		every:   every,
		burst:   burst,
		idleTTL: 15 * time.Minute,
	}
}

// Allow consumes one attempt for id
func (t *Throttle) Allow(id string) bool {
	return t.limiter(id).Allow()
}

func (t *Throttle) limiter(id string) *rate.Limiter {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if ent, ok := t.entries[id]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(rate.Every(t.every), t.burst)
	t.entries[id] = &throttleEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup forgets identities idle for longer than the idle TTL
func (t *Throttle) Cleanup() {
	cutoff := time.Now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	for k, ent := range t.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(t.entries, k)
		}
	}
}

// Tracked returns the number of identities with a bucket
func (t *Throttle) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// StartJanitor runs Cleanup periodically until ctx is done
func (t *Throttle) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	tick := time.NewTicker(every)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t.Cleanup()
			}
		}
	}()
}
