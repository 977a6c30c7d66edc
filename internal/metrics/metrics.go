package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geochat_connected_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	MessagesBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geochat_messages_broadcast_total",
			Help: "Total messages broadcast to clients",
		},
		[]string{"kind"}, // "chat" or "system"
	)

	// Relay metrics
	RelayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geochat_relay_requests_total",
			Help: "Total radio proxy requests",
		},
		[]string{"outcome"}, // "streamed", "redirect", "bad_request", "upstream_error"
	)

	// Preview metrics
	PreviewFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geochat_preview_fetches_total",
			Help: "Total link preview fetch attempts",
		},
		[]string{"outcome"}, // "attached" or "missed"
	)
)
