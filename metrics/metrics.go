// File: metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlayersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "luarena_players_connected",
		Help: "Number of player websockets currently connected.",
	})

	ViewersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "luarena_viewers_connected",
		Help: "Number of viewer websockets currently connected.",
	})

	PlayersRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "luarena_players_registered",
		Help: "Number of players registered for the next match.",
	})

	MatchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luarena_matches_started_total",
		Help: "Total number of matches started.",
	})

	MatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luarena_matches_completed_total",
		Help: "Total number of matches that ran to completion.",
	})

	ActionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luarena_actions_submitted_total",
		Help: "Total number of player actions accepted into the buffer.",
	})

	EngineErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luarena_engine_errors_total",
		Help: "Total number of failed scripted engine calls, including retried ones.",
	})

	EngineCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "luarena_engine_call_duration_seconds",
		Help:    "Duration of scripted engine Init and Update calls.",
		Buckets: prometheus.DefBuckets,
	})
)
