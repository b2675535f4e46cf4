package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection Metrics
var (
	// ConnectionsActive tracks currently running sessions
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connections_active",
			Help: "Number of currently connected relay clients",
		},
	)

	// ConnectionsTotal tracks accepted connections that started a session
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_connections_total",
			Help: "Total connections that started a relay session",
		},
	)

	// ConnectionsRejected tracks connections closed by admission control
	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_connections_rejected_total",
			Help: "Total connections rejected by admission control, by reason",
		},
		[]string{"reason"},
	)

	// AcceptErrors tracks failed accept calls on the listener
	AcceptErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_accept_errors_total",
			Help: "Total failed accept calls",
		},
	)

	// SessionDuration tracks how long sessions lived
	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_session_duration_seconds",
			Help:    "Relay session lifetime in seconds",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 4 * 3600, 24 * 3600},
		},
	)

	// SessionEnds tracks why sessions ended
	SessionEnds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_session_ends_total",
			Help: "Total ended sessions by end reason",
		},
		[]string{"reason"},
	)
)

// Message Metrics
var (
	// MessagesPublished tracks lines published into the broadcast channel
	MessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_published_total",
			Help: "Total lines received from clients and published",
		},
	)

	// MessagesDelivered tracks lines written to clients
	MessagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_delivered_total",
			Help: "Total lines written to clients",
		},
	)

	// MessagesLagged tracks lines skipped by lagging subscribers
	MessagesLagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_lagged_total",
			Help: "Total lines skipped because a client fell behind the retention window",
		},
	)
)
