package guard

import "time"

// Config holds the thresholds for the abuse guard
type Config struct {
	MinuteLimit   int           // Max requests per identity in the trailing minute
	HourLimit     int           // Max requests per identity in the trailing hour
	MinuteWindow  time.Duration // Window used by MinuteLimit
	HourWindow    time.Duration // Window used by HourLimit and for ledger pruning
	BurstLimit    int           // Burst flagged when the short window holds more than this
	BurstWindow   time.Duration // Short window for burst detection
	SuspicionMax  int           // Suspicious events before an identity is blocked
	BlockDuration time.Duration // How long an automatic block lasts
	HistoryLimit  int           // Behaviour history entries kept per identity (0 = unbounded)

	// Static Retry-After values, in seconds
	BlockedRetryAfter int
	LimitRetryAfter   int
}

// DefaultConfig returns the limits the storefront ships with
func DefaultConfig() *Config {
	return &Config{
		MinuteLimit:   60,
		HourLimit:     1000,
		MinuteWindow:  time.Minute,
		HourWindow:    time.Hour,
		BurstLimit:    20, // >20 requests in 10s looks automated
		BurstWindow:   10 * time.Second,
		SuspicionMax:  5,
		BlockDuration: time.Hour,
		HistoryLimit:  50,

		BlockedRetryAfter: 3600,
		LimitRetryAfter:   60,
	}
}

// StrictConfig returns tighter limits for admin-only surfaces
func StrictConfig() *Config {
	cfg := DefaultConfig()
	cfg.MinuteLimit = 20
	cfg.HourLimit = 300
	cfg.BurstLimit = 10
	cfg.SuspicionMax = 3
	return cfg
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MinuteLimit <= 0 {
		c.MinuteLimit = def.MinuteLimit
	}
	if c.HourLimit <= 0 {
		c.HourLimit = def.HourLimit
	}
	if c.MinuteWindow <= 0 {
		c.MinuteWindow = def.MinuteWindow
	}
	if c.HourWindow <= 0 {
		c.HourWindow = def.HourWindow
	}
	if c.BurstLimit <= 0 {
		c.BurstLimit = def.BurstLimit
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = def.BurstWindow
	}
	if c.SuspicionMax <= 0 {
		c.SuspicionMax = def.SuspicionMax
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = def.BlockDuration
	}
	if c.BlockedRetryAfter <= 0 {
		c.BlockedRetryAfter = def.BlockedRetryAfter
	}
	if c.LimitRetryAfter <= 0 {
		c.LimitRetryAfter = def.LimitRetryAfter
	}
}
