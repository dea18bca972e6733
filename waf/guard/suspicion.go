package guard

import "time"

// BehaviorEvent is one flagged action kept for observability
type BehaviorEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// SuspicionRecord accumulates flagged events for one identity
type SuspicionRecord struct {
	Count        int
	History      []BehaviorEvent
	BlockedUntil int64 // ms since epoch, 0 when never blocked
}

// IsBlocked reports whether id carries a live block. Expired blocks are
// cleared on the way out, together with the identity's suspicion record.
func (g *Guard) IsBlocked(id string) bool {
	now := g.now()

	g.mu.Lock()
	blocked, expired := g.isBlocked(id, now.UnixMilli())
	g.mu.Unlock()

	if expired {
		g.emit([]Event{{Type: EventBlockExpired, Identity: id, Timestamp: now}})
	}
	return blocked
}

// RecordSuspicious flags one suspicious action for id. Reaching
// SuspicionMax puts the identity in the block registry for BlockDuration.
func (g *Guard) RecordSuspicious(id, eventType string) {
	now := g.now()

	g.mu.Lock()
	events := g.recordSuspicious(id, eventType, now)
	g.mu.Unlock()

	g.emit(events)
}

// Unblock lifts a block and forgets the identity's suspicion history.
// Returns false when the identity was not blocked.
func (g *Guard) Unblock(id string) bool {
	g.mu.Lock()
	_, ok := g.blocked[id]
	delete(g.blocked, id)
	delete(g.suspicion, id)
	g.mu.Unlock()

	if ok {
		g.emit([]Event{{Type: EventUnblock, Identity: id, Timestamp: g.now()}})
	}
	return ok
}

// isBlocked must be called with g.mu held
func (g *Guard) isBlocked(id string, now int64) (blocked, expired bool) {
	if _, ok := g.blocked[id]; !ok {
		return false, false
	}
	if rec := g.suspicion[id]; rec != nil && now < rec.BlockedUntil {
		return true, false
	}
	delete(g.blocked, id)
	delete(g.suspicion, id)
	return false, true
}

// recordSuspicious must be called with g.mu held. A live block is never
// extended; a stale one is cleared first so counting starts over.
func (g *Guard) recordSuspicious(id, eventType string, now time.Time) []Event {
	ms := now.UnixMilli()
	var events []Event

	if _, expired := g.isBlocked(id, ms); expired {
		events = append(events, Event{Type: EventBlockExpired, Identity: id, Timestamp: now})
	}

	rec, ok := g.suspicion[id]
	if !ok {
		rec = &SuspicionRecord{}
		g.suspicion[id] = rec
	}

	rec.History = append(rec.History, BehaviorEvent{Type: eventType, Timestamp: now})
	if limit := g.cfg.HistoryLimit; limit > 0 && len(rec.History) > limit {
		n := copy(rec.History, rec.History[len(rec.History)-limit:])
		rec.History = rec.History[:n]
	}
	rec.Count++

	events = append(events, Event{
		Type:      EventSuspicious,
		Identity:  id,
		Reason:    eventType,
		Count:     rec.Count,
		Timestamp: now,
	})

	_, alreadyBlocked := g.blocked[id]
	if rec.Count >= g.cfg.SuspicionMax && !alreadyBlocked {
		g.blocked[id] = struct{}{}
		rec.BlockedUntil = ms + g.cfg.BlockDuration.Milliseconds()
		events = append(events, Event{
			Type:      EventBlock,
			Identity:  id,
			Reason:    eventType,
			Count:     rec.Count,
			Until:     time.UnixMilli(rec.BlockedUntil),
			Timestamp: now,
		})
	}
	return events
}
