package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_decode_failures_total",
		Help: "Inbound frames dropped because they failed to decode",
	})

	metricForcedTurnEnds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_forced_turn_ends_total",
		Help: "Synthetic turn ends injected by the stall watchdog",
	})
)
