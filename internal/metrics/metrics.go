// Package metrics defines Prometheus metrics for depthcue.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "depthcue_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depthcue_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depthcue_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	TrialsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depthcue_trials_recorded_total",
			Help: "Trial results accepted, by task and condition",
		},
		[]string{"task", "condition"},
	)

	SurveysRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "depthcue_surveys_recorded_total",
			Help: "Survey responses accepted",
		},
	)

	SessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "depthcue_sessions_completed_total",
			Help: "Participant sessions finalised",
		},
	)

	SubmitQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "depthcue_submit_queue_depth",
			Help: "Pending result submissions",
		},
	)

	SubmitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depthcue_submit_failures_total",
			Help: "Result submissions that failed or were dropped",
		},
		[]string{"kind", "reason"},
	)

	BackupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "depthcue_backup_failures_total",
			Help: "Local backup writes that failed",
		},
	)

	ActiveViewers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "depthcue_active_viewers",
			Help: "Scene viewers not yet destroyed",
		},
	)

	ReactionTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "depthcue_reaction_time_seconds",
			Help:    "Participant reaction time by task and condition",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"task", "condition"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "depthcue_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	GraphCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "depthcue_graph_cache_entries",
			Help: "Parsed graph files held in memory",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		TrialsRecorded, SurveysRecorded, SessionsCompleted,
		SubmitQueueDepth, SubmitFailures, BackupFailures,
		ActiveViewers, ReactionTime, WSConnections, GraphCacheEntries,
	)
}
