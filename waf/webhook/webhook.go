package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"topcompras/waf/guard"
	"topcompras/waf/metrics"
)

// Payload formats
const (
	FormatJSON    = "json"
	FormatSlack   = "slack"
	FormatDiscord = "discord"
)

// Config holds webhook configuration
type Config struct {
	Enabled    bool
	URLs       []string
	Format     string        // json (default), slack or discord
	Timeout    time.Duration // HTTP timeout (default: 5s)
	MaxRetries int           // retry attempts after the first (default: 2)
	PerMinute  int           // notifications allowed per minute across all URLs (default: 20)
}

// Notifier posts guard block notifications to chat or generic webhooks
type Notifier struct {
	config     Config
	client     *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	wg         sync.WaitGroup
}

// BlockEvent is the generic JSON payload
type BlockEvent struct {
	Timestamp    string `json:"timestamp"`
	EventType    string `json:"event_type"` // "block", "rule_block"
	Identity     string `json:"identity"`
	Reason       string `json:"reason,omitempty"`
	Suspicion    int    `json:"suspicion_count,omitempty"`
	BlockedUntil string `json:"blocked_until,omitempty"`
	Message      string `json:"message"`
}

// NewNotifier creates a new webhook notifier
func NewNotifier(config Config) *Notifier {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.PerMinute == 0 {
		config.PerMinute = 20
	}
	if config.Format == "" {
		config.Format = FormatJSON
	}

	return &Notifier{
		config:     config,
		client:     &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.PerMinute)), config.PerMinute),
		retryDelay: time.Second,
	}
}

// Handle turns guard block events into notifications. It satisfies
// guard.Listener and never blocks the caller.
func (n *Notifier) Handle(ev guard.Event) {
	switch ev.Type {
	case guard.EventBlock:
		n.Notify(BlockEvent{
			Timestamp:    ev.Timestamp.UTC().Format(time.RFC3339),
			EventType:    string(ev.Type),
			Identity:     ev.Identity,
			Reason:       ev.Reason,
			Suspicion:    ev.Count,
			BlockedUntil: ev.Until.UTC().Format(time.RFC3339),
			Message:      fmt.Sprintf("%s bloqueado após %d eventos suspeitos (%s)", ev.Identity, ev.Count, ev.Reason),
		})
	case guard.EventRuleBlock:
		n.Notify(BlockEvent{
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
			EventType: string(ev.Type),
			Identity:  ev.Identity,
			Reason:    ev.Reason,
			Message:   fmt.Sprintf("%s rejeitado por regra manual (%s)", ev.Identity, ev.Reason),
		})
	}
}

// Notify sends event to every configured URL in the background
func (n *Notifier) Notify(event BlockEvent) {
	if !n.config.Enabled || len(n.config.URLs) == 0 {
		return
	}
	if !n.limiter.Allow() {
		metrics.Notifications.WithLabelValues(n.config.Format, "dropped").Inc()
		return
	}

	for _, url := range n.config.URLs {
		n.wg.Add(1)
		go func(url string) {
			defer n.wg.Done()
			n.sendWebhook(url, event)
		}(url)
	}
}

// Wait blocks until in-flight notifications finish
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) payload(event BlockEvent) interface{} {
	switch n.config.Format {
	case FormatSlack:
		return formatSlack(event)
	case FormatDiscord:
		return formatDiscord(event)
	default:
		return event
	}
}

func (n *Notifier) sendWebhook(url string, event BlockEvent) {
	jsonData, err := json.Marshal(n.payload(event))
	if err != nil {
		log.Printf("[WEBHOOK] failed to marshal payload: %v", err)
		return
	}

	for attempt := 0; attempt <= n.config.MaxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			log.Printf("[WEBHOOK] failed to create request: %v", err)
			metrics.Notifications.WithLabelValues(n.config.Format, "error").Inc()
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "topcompras-guard/1.0")

		resp, err := n.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				metrics.Notifications.WithLabelValues(n.config.Format, "sent").Inc()
				return
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}

		if attempt < n.config.MaxRetries {
			time.Sleep(time.Duration(attempt+1) * n.retryDelay)
			continue
		}
		log.Printf("[WEBHOOK] failed after %d attempts: %v", attempt+1, err)
		metrics.Notifications.WithLabelValues(n.config.Format, "error").Inc()
	}
}

func formatSlack(event BlockEvent) map[string]interface{} {
	emoji := ":no_entry:"
	if event.EventType == string(guard.EventRuleBlock) {
		emoji = ":shield:"
	}

	return map[string]interface{}{
		"text": fmt.Sprintf("%s *TOP COMPRAS - IP bloqueado*", emoji),
		"attachments": []map[string]interface{}{
			{
				"color": "danger",
				"fields": []map[string]interface{}{
					{"title": "IP", "value": event.Identity, "short": true},
					{"title": "Evento", "value": event.EventType, "short": true},
					{"title": "Motivo", "value": event.Reason, "short": true},
					{"title": "Até", "value": event.BlockedUntil, "short": true},
					{"title": "Mensagem", "value": event.Message, "short": false},
				},
				"footer": "topcompras guard",
			},
		},
	}
}

func formatDiscord(event BlockEvent) map[string]interface{} {
	return map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       "🛡️ TOP COMPRAS - IP bloqueado",
				"description": event.Message,
				"color":       16711680,
				"fields": []map[string]interface{}{
					{"name": "IP", "value": event.Identity, "inline": true},
					{"name": "Evento", "value": event.EventType, "inline": true},
					{"name": "Motivo", "value": event.Reason, "inline": true},
				},
				"footer":    map[string]string{"text": "topcompras guard"},
				"timestamp": event.Timestamp,
			},
		},
	}
}
