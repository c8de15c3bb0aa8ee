package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Messaging metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total messages appended to the log",
		},
		[]string{"type"},
	)

	MessageMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_message_mutations_total",
			Help: "Total message mutations",
		},
		[]string{"kind"}, // "edit", "delete" or "forward"
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_marked_read_total",
			Help: "Total messages flipped to read",
		},
	)

	ShareRecipients = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_share_recipients_total",
			Help: "Share fan-out outcomes per recipient",
		},
		[]string{"outcome"},
	)

	IdempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_idempotent_replays_total",
			Help: "Sends answered from a completed idempotency key",
		},
	)

	IdempotencyBypasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_idempotency_bypasses_total",
			Help: "Keyed sends delivered without deduplication because the key store was unavailable",
		},
	)

	CapabilityDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_capability_denials_total",
			Help: "Operations rejected by chat settings",
		},
		[]string{"capability"},
	)

	// Cache metrics
	ConversationCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_conversation_cache_lookups_total",
			Help: "Conversation cache lookups",
		},
		[]string{"result"}, // "hit", "miss" or "bypass"
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"scope"},
	)
)
