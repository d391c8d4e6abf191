// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_resolved_total",
			Help: "Total number of questions resolved, by route and answer source",
		},
		[]string{"route", "source"},
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "question_resolution_duration_seconds",
			Help: "End-to-end duration of question resolution in seconds",
		},
		[]string{"route"},
	)

	DatasetPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dataset_pages_fetched_total",
			Help: "Total number of pages fetched from the data backend",
		},
	)

	DatasetDuplicatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dataset_duplicates_dropped_total",
			Help: "Total number of duplicate or blank citation records dropped",
		},
	)

	DatasetPartialLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_partial_loads_total",
			Help: "Total number of dataset loads that stopped early",
		},
		[]string{"reason"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Total number of session cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_misses_total",
			Help: "Total number of session cache misses",
		},
	)

	ValidatorRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_validator_rejections_total",
			Help: "Total number of generated queries rejected by the read-only validator",
		},
		[]string{"keyword"},
	)

	DegradedExecutions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_degraded_executions_total",
			Help: "Total number of queries served by a capped full-table fetch",
		},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_refresh_runs_total",
			Help: "Total number of scheduled dataset refresh runs",
		},
		[]string{"status"},
	)
)
