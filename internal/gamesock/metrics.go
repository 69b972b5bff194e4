package gamesock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesock_frames_total",
		Help: "Inbound text frames delivered to the handler",
	})

	metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesock_reconnects_total",
		Help: "Connection closures that entered the reconnect path",
	})

	metricDroppedSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesock_dropped_sends_total",
		Help: "Sends rejected because the channel was not open",
	})

	metricConnectMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gamesock_connect_ms",
		Help:    "Time to establish the websocket connection (ms)",
		Buckets: prometheus.ExponentialBuckets(10, 1.8, 10),
	})
)
