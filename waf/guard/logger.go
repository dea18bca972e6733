package guard

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"topcompras/waf/logging"
)

// SecurityEvent is the JSON line written for each guard event
type SecurityEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Identity  string `json:"identity"`
	Severity  string `json:"severity"`

	Limit        string `json:"limit,omitempty"`
	RequestCount int    `json:"request_count,omitempty"`
	Threshold    int    `json:"threshold,omitempty"`
	Suspicion    int    `json:"suspicion_count,omitempty"`
	BlockedUntil string `json:"blocked_until,omitempty"`

	Message           string   `json:"message"`
	RecommendedAction string   `json:"recommended_action,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

// LoggerConfig configures the security event log
type LoggerConfig struct {
	Enabled       bool
	LogPath       string
	HumanPath     string // empty disables the human-readable log
	LogToConsole  bool
	MaxSizeMB     int
	MaxBackups    int
	MaxAgeDays    int
	Compress      bool
	FlushInterval time.Duration
	BatchSize     int
}

// DefaultLoggerConfig writes to ./logs and flushes every second
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Enabled:       true,
		LogPath:       "./logs/guard.log",
		HumanPath:     "./logs/guard_readable.log",
		MaxSizeMB:     100,
		MaxBackups:    5,
		MaxAgeDays:    30,
		Compress:      true,
		FlushInterval: time.Second,
		BatchSize:     100,
	}
}

// EventLogger buffers guard events and writes them as JSON lines plus an
// optional one-line-per-event readable log
type EventLogger struct {
	mu          sync.Mutex
	bufWriter   *bufio.Writer
	jsonEncoder *json.Encoder
	humanWriter *bufio.Writer
	closers     []io.Closer

	cfg         *Config
	console     bool
	batchSize   int
	eventCount  int64
	eventBuffer []SecurityEvent

	flushTimer *time.Ticker
	done       chan struct{}
}

// NewEventLogger opens rotated log files for guard events.
// thresholds is used to describe limits in event messages.
func NewEventLogger(lc LoggerConfig, thresholds *Config) (*EventLogger, error) {
	if !lc.Enabled {
		return nil, nil
	}
	if lc.LogPath == "" {
		return nil, fmt.Errorf("guard event log: empty log path")
	}

	file := func(path string) io.WriteCloser {
		return logging.Rotating(logging.File{
			Path:       path,
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAgeDays: lc.MaxAgeDays,
			Compress:   lc.Compress,
		})
	}

	jsonFile := file(lc.LogPath)
	var humanFile io.Writer
	closers := []io.Closer{jsonFile}
	if lc.HumanPath != "" {
		hf := file(lc.HumanPath)
		humanFile = hf
		closers = append(closers, hf)
	}

	l := newEventLogger(jsonFile, humanFile, lc, thresholds)
	l.closers = closers

	if lc.FlushInterval > 0 {
		l.flushTimer = time.NewTicker(lc.FlushInterval)
		go l.backgroundFlusher(l.flushTimer.C)
	}
	return l, nil
}

func newEventLogger(jsonOut, humanOut io.Writer, lc LoggerConfig, thresholds *Config) *EventLogger {
	if thresholds == nil {
		thresholds = DefaultConfig()
	}
	if lc.BatchSize <= 0 {
		lc.BatchSize = 100
	}

	l := &EventLogger{
		cfg:         thresholds,
		console:     lc.LogToConsole,
		batchSize:   lc.BatchSize,
		eventBuffer: make([]SecurityEvent, 0, lc.BatchSize),
		done:        make(chan struct{}),
	}
	l.bufWriter = bufio.NewWriterSize(jsonOut, 64*1024)
	l.jsonEncoder = json.NewEncoder(l.bufWriter)
	if humanOut != nil {
		l.humanWriter = bufio.NewWriterSize(humanOut, 64*1024)
	}
	return l
}

// Handle converts a guard event to a SecurityEvent and buffers it.
// It satisfies Listener.
func (l *EventLogger) Handle(ev Event) {
	if l == nil {
		return
	}
	se, ok := l.describe(ev)
	if !ok {
		return
	}

	l.mu.Lock()
	l.eventCount++
	l.eventBuffer = append(l.eventBuffer, se)
	if len(l.eventBuffer) >= l.batchSize {
		l.flushBuffer()
	}
	l.mu.Unlock()

	if l.console {
		log.Printf("[GUARD] [%s] %s - %s - %s", se.Severity, se.EventType, se.Identity, se.Message)
	}
}

func (l *EventLogger) describe(ev Event) (SecurityEvent, bool) {
	se := SecurityEvent{
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
		EventType: string(ev.Type),
		Identity:  ev.Identity,
	}

	switch ev.Type {
	case EventRateLimit:
		se.Severity = "medium"
		se.Limit = ev.Limit
		se.RequestCount = ev.Count
		se.Threshold = l.cfg.MinuteLimit
		if ev.Limit == LimitHour {
			se.Threshold = l.cfg.HourLimit
		}
		se.Message = ev.Reason
		se.RecommendedAction = "Request rejected with Retry-After; repeated violations escalate to a block."
		se.Tags = []string{"rate_limit", ev.Limit}
	case EventBurst:
		se.Severity = "high"
		se.RequestCount = ev.Count
		se.Threshold = l.cfg.BurstLimit
		se.Message = fmt.Sprintf("Burst pattern: %d requests in %s (threshold %d)",
			ev.Count, describeWindow(l.cfg.BurstWindow), l.cfg.BurstLimit)
		se.RecommendedAction = "Request admitted; counted as suspicious behaviour."
		se.Tags = []string{"burst", "ddos_pattern"}
	case EventBlock:
		se.Severity = "critical"
		se.Suspicion = ev.Count
		se.Threshold = l.cfg.SuspicionMax
		se.BlockedUntil = ev.Until.UTC().Format(time.RFC3339)
		se.Message = fmt.Sprintf("Identity blocked after %d suspicious events (last: %s)", ev.Count, ev.Reason)
		se.RecommendedAction = "Block lifts automatically; unblock via the admin API if this is a false positive."
		se.Tags = []string{"auto_block", ev.Reason}
	case EventBlockExpired:
		se.Severity = "info"
		se.Message = "Block expired; suspicion record cleared"
	case EventRuleBlock:
		se.Severity = "high"
		se.Message = fmt.Sprintf("Rejected by operator ban rule: %s", ev.Reason)
		se.Tags = []string{"rule"}
	case EventUnblock:
		se.Severity = "info"
		se.Message = "Block lifted by operator"
	default:
		// per-event suspicion noise stays out of the file; blocks summarise it
		return se, false
	}
	return se, true
}

// flushBuffer must be called with l.mu held
func (l *EventLogger) flushBuffer() {
	if len(l.eventBuffer) == 0 {
		return
	}

	for _, event := range l.eventBuffer {
		if err := l.jsonEncoder.Encode(event); err != nil {
			log.Printf("[GUARD] error writing event log: %v", err)
		}
		if l.humanWriter != nil {
			if _, err := l.humanWriter.WriteString(formatHumanLine(event) + "\n"); err != nil {
				log.Printf("[GUARD] error writing readable log: %v", err)
			}
		}
	}
	l.eventBuffer = l.eventBuffer[:0]

	if err := l.bufWriter.Flush(); err != nil {
		log.Printf("[GUARD] error flushing event log: %v", err)
	}
	if l.humanWriter != nil {
		if err := l.humanWriter.Flush(); err != nil {
			log.Printf("[GUARD] error flushing readable log: %v", err)
		}
	}
}

func (l *EventLogger) backgroundFlusher(tick <-chan time.Time) {
	for {
		select {
		case <-tick:
			l.mu.Lock()
			l.flushBuffer()
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// Flush writes buffered events out
func (l *EventLogger) Flush() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushBuffer()
	return nil
}

// EventCount returns the number of events accepted so far
func (l *EventLogger) EventCount() int64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eventCount
}

// Close flushes and closes the underlying files
func (l *EventLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.flushTimer != nil {
		l.flushTimer.Stop()
		close(l.done)
		l.flushTimer = nil
	}
	l.flushBuffer()

	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}

// formatHumanLine renders a concise readable line
func formatHumanLine(ev SecurityEvent) string {
	parts := []string{fmt.Sprintf("[%s] [%s] %s", ev.Timestamp, strings.ToUpper(ev.Severity), ev.EventType)}
	if ev.Identity != "" {
		parts = append(parts, fmt.Sprintf("id=%s", ev.Identity))
	}
	if ev.RequestCount > 0 && ev.Threshold > 0 {
		parts = append(parts, fmt.Sprintf("rate=%d/%d", ev.RequestCount, ev.Threshold))
	}
	if ev.Suspicion > 0 {
		parts = append(parts, fmt.Sprintf("suspicion=%d", ev.Suspicion))
	}
	if ev.BlockedUntil != "" {
		parts = append(parts, fmt.Sprintf("until=%s", ev.BlockedUntil))
	}
	if ev.Message != "" {
		parts = append(parts, fmt.Sprintf("msg=%q", ev.Message))
	}
	return strings.Join(parts, " ")
}

// LogListener reports the events an operator should see in the process log
func LogListener(ev Event) {
	switch ev.Type {
	case EventBurst:
		log.Printf("[GUARD] WARNING burst pattern from %s: %d requests in the short window", ev.Identity, ev.Count)
	case EventBlock:
		log.Printf("[GUARD] identity blocked: %s (%d suspicious events, until %s)",
			ev.Identity, ev.Count, ev.Until.UTC().Format(time.RFC3339))
	case EventRateLimit:
		log.Printf("[GUARD] %s: %s", ev.Identity, ev.Reason)
	case EventRuleBlock:
		log.Printf("[GUARD] banned identity rejected: %s (%s)", ev.Identity, ev.Reason)
	}
}
