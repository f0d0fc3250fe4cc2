package director

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "director",
		Name:      "decisions_total",
		Help:      "Decision evaluations by outcome.",
	}, []string{"outcome"})

	metricBrakeCommands = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "director",
		Name:      "brake_commands_published_total",
		Help:      "Brake commands published to the durable queue.",
	})

	metricDeviations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "director",
		Name:      "distance_deviations_total",
		Help:      "Tracker-vs-fused distance deviations beyond the limit.",
	})

	metricMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "director",
		Name:      "malformed_messages_total",
		Help:      "Payloads accepted-and-logged as unparsable.",
	})
)
