package dialogue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialogue_turns_total",
		Help: "Turns started (transcript entries created)",
	})

	metricFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialogue_fragments_total",
		Help: "Content fragments applied to the active entry",
	})

	metricOrphanFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialogue_orphan_fragments_total",
		Help: "Fragments discarded because no turn was active",
	})

	metricCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialogue_completions_total",
		Help: "Session completions by signal source (sentinel, typed)",
	}, []string{"source"})

	metricServerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialogue_server_errors_total",
		Help: "Error events received from the server",
	})
)
