package etl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run-level metrics
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdi_runs_total",
			Help: "Total number of file processing runs",
		},
		[]string{"status"}, // success, partial, failed, dry_run
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mdi_run_duration_seconds",
			Help:    "Duration of one file processing run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	// Record-level metrics
	recordsValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdi_records_validated_total",
			Help: "Total number of records validated",
		},
		[]string{"outcome"}, // valid or invalid
	)

	validationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdi_validation_errors_total",
			Help: "Total number of validation rule failures",
		},
		[]string{"kind"},
	)
)
