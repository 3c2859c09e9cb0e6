package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server-wide gauges and counters, exported at /metrics.
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reviewarcade",
		Name:      "active_sessions",
		Help:      "Number of live sessions held by this process.",
	})

	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reviewarcade",
		Name:      "open_connections",
		Help:      "Number of open WebSocket connections.",
	})

	MessagesBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reviewarcade",
		Name:      "messages_broadcast_total",
		Help:      "Outbound WebSocket messages accepted for delivery.",
	})

	QuestionsServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reviewarcade",
		Name:      "questions_served_total",
		Help:      "Review questions issued to players.",
	})

	AnswersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reviewarcade",
		Name:      "answers_processed_total",
		Help:      "Answers validated by outcome.",
	}, []string{"outcome"})

	SlowConsumerDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reviewarcade",
		Name:      "slow_consumer_drops_total",
		Help:      "Connections dropped for unread outbound backlog.",
	})
)
