package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquameter_operations_total",
			Help: "Total number of ledger operations per operation name",
		},
		[]string{"operation"},
	)

	OperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aquameter_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds per operation name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquameter_operation_errors_total",
			Help: "Total number of failed ledger operations per operation name",
		},
		[]string{"operation"},
	)

	TokensMintedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquameter_tokens_minted_total",
			Help: "Total token units minted per token role",
		},
		[]string{"role"},
	)

	TokensBurnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquameter_tokens_burned_total",
			Help: "Total token units burned per token role",
		},
		[]string{"role"},
	)

	ReservoirLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aquameter_reservoir_level",
			Help: "Last reported level per reservoir",
		},
		[]string{"reservoir"},
	)
)

// ObserveOperation records one completed ledger operation.
func ObserveOperation(operation string, startedAt time.Time, err error) {
	OperationsTotal.WithLabelValues(operation).Inc()
	OperationDurationSeconds.WithLabelValues(operation).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		OperationErrorsTotal.WithLabelValues(operation).Inc()
	}
}

func ObserveMint(role string, amount uint64) {
	TokensMintedTotal.WithLabelValues(role).Add(float64(amount))
}

func ObserveBurn(role string, amount uint64) {
	TokensBurnedTotal.WithLabelValues(role).Add(float64(amount))
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aquameter_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aquameter_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquameter_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
