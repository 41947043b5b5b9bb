// Package metrics owns the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)

	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Live websocket connections",
	})
	OnlineParticipants = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "online_participants",
		Help: "Distinct participants with at least one live connection",
	})
	Intents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_intents_total",
			Help: "Inbound websocket intents by type",
		},
		[]string{"type"},
	)
	DroppedConnections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_slow_consumers_dropped_total",
		Help: "Connections closed because their send buffer was full",
	})

	Moves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_moves_total",
			Help: "Moves by result (accepted or the rejection kind)",
		},
		[]string{"result"},
	)
	GamesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_created_total",
			Help: "Games created by source",
		},
		[]string{"source"},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_finished_total",
			Help: "Finished games by outcome",
		},
		[]string{"outcome"},
	)
	ChatMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Chat messages relayed",
	})
	Rematches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rematch_events_total",
			Help: "Rematch negotiation events",
		},
		[]string{"event"},
	)
	QueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "matchmaking_queue_size",
		Help: "Participants waiting for an opponent",
	})
	Matches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchmaking_matches_total",
		Help: "Pairs formed by matchmaking",
	})

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		RLRequests,
		RLBlocked,
		Connections,
		OnlineParticipants,
		Intents,
		DroppedConnections,
		Moves,
		GamesCreated,
		GamesFinished,
		ChatMessages,
		Rematches,
		QueueSize,
		Matches,
		HTTPRequests,
		HTTPDuration,
	)
}
