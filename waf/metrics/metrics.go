package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_requests_total",
			Help: "Total number of HTTP requests served, by route, method and status",
		},
		[]string{"handler", "method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topcompras_request_duration_seconds",
			Help:    "Request processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	// Guard metrics
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_guard_decisions_total",
			Help: "Abuse guard verdicts by outcome (admitted, blocked, rate_limited)",
		},
		[]string{"outcome"},
	)

	GuardSuspiciousEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_guard_suspicious_events_total",
			Help: "Suspicious behaviour events recorded by type",
		},
		[]string{"type"},
	)

	GuardBlockedIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "topcompras_guard_blocked_identities",
			Help: "Identities currently held in the block registry",
		},
	)

	GuardTrackedIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "topcompras_guard_tracked_identities",
			Help: "Identities with a request ledger",
		},
	)

	RuleBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "topcompras_rule_blocked_total",
			Help: "Requests rejected by an operator ban rule",
		},
	)

	// Storefront metrics
	SalesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_sales_total",
			Help: "Units registered as sold, by catalog category",
		},
		[]string{"category"},
	)

	CheckoutRedirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_checkout_redirects_total",
			Help: "Checkout redirects issued, by category",
		},
		[]string{"category"},
	)

	FeedbacksPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "topcompras_feedbacks_posted_total",
			Help: "Customer feedbacks accepted",
		},
	)

	AdminLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_admin_logins_total",
			Help: "Admin login attempts by result",
		},
		[]string{"result"},
	)

	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "topcompras_live_clients",
			Help: "Connected live-update websocket clients",
		},
	)

	// Operations metrics
	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_config_reloads_total",
			Help: "Total number of configuration reloads",
		},
		[]string{"status"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topcompras_notifications_total",
			Help: "Outbound block notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)
