// Package metrics exposes client instrumentation on the default
// Prometheus registry; the monitor daemon serves it at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "svs_logins_total",
		Help: "Total number of successful logins (including re-logins)",
	})

	ReauthTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "svs_reauth_attempts_total",
		Help: "Total number of automatic re-authentication attempts",
	})

	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svs_polls_total",
		Help: "Total number of completed poll runs",
	}, []string{"feed", "result"})

	PollTicksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svs_poll_ticks_skipped_total",
		Help: "Ticks skipped because the previous request was still in flight",
	}, []string{"feed"})

	BridgePosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "svs_bridge_events_posted_total",
		Help: "Total events posted to the event bridge",
	})

	BridgeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "svs_bridge_events_dropped_total",
		Help: "Events dropped at dispatch for deregistered targets",
	})

	BridgeQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "svs_bridge_queue_depth",
		Help: "Events currently queued for dispatch",
	})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svs_commands_total",
		Help: "Total user-initiated commands by outcome",
	}, []string{"command", "result"})
)
