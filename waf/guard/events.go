package guard

import "time"

// EventType names a notable guard decision
type EventType string

const (
	EventRateLimit    EventType = "rate_limit"
	EventBurst        EventType = "burst"
	EventSuspicious   EventType = "suspicious"
	EventBlock        EventType = "block"
	EventBlockExpired EventType = "block_expired"
	EventRuleBlock    EventType = "rule_block"
	EventUnblock      EventType = "unblock"
)

// Event is handed to every registered Listener after the guard lock is released
type Event struct {
	Type      EventType
	Identity  string
	Reason    string    // rate-limit reason, suspicion type or rule reason
	Limit     string    // "minute" / "hour" for rate limits
	Count     int       // ledger count for rate/burst, suspicion count otherwise
	Until     time.Time // block expiry for EventBlock
	Timestamp time.Time
}

// Listener receives guard events. It runs on the request goroutine,
// so anything slow belongs in its own goroutine.
type Listener func(Event)
