// Package metrics exposes Prometheus counters for the résumé pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	candidatePipeline = "candidate_pipeline"

	runsTotal             = "runs_total"
	stageDurationSeconds  = "stage_duration_seconds"
	stageFailuresTotal    = "stage_failures_total"
	embeddingsTotal       = "embeddings_total"
	followupFailuresTotal = "followup_enqueue_failures_total"
	workflowJobsTotal     = "workflow_jobs_processed_total"

	// Labels
	outcomeLabel = "outcome"
	stageLabel   = "stage"
	statusLabel  = "status"
	jobTypeLabel = "job_type"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

var runsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: candidatePipeline,
		Name:      runsTotal,
		Help:      "number of résumé pipeline runs by outcome",
	},
	[]string{outcomeLabel},
)

var stageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: candidatePipeline,
		Name:      stageDurationSeconds,
		Help:      "time spent in each pipeline stage",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{stageLabel},
)

var stageFailuresMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: candidatePipeline,
		Name:      stageFailuresTotal,
		Help:      "number of stage failures, fatal or not",
	},
	[]string{stageLabel},
)

var embeddingsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: candidatePipeline,
		Name:      embeddingsTotal,
		Help:      "number of embedding attempts by status",
	},
	[]string{statusLabel},
)

var followupFailuresMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: candidatePipeline,
		Name:      followupFailuresTotal,
		Help:      "number of follow-up job batches that failed to enqueue",
	},
)

var workflowJobsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: candidatePipeline,
		Name:      workflowJobsTotal,
		Help:      "number of work queue jobs processed by the worker",
	},
	[]string{jobTypeLabel, statusLabel},
)

// IncreaseRunsTotal counts a finished pipeline run
func IncreaseRunsTotal(outcome string) {
	runsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// ObserveStageDuration records how long a stage took
func ObserveStageDuration(stage string, d time.Duration) {
	stageDurationMetric.With(prometheus.Labels{stageLabel: stage}).Observe(d.Seconds())
}

// IncreaseStageFailures counts a failed stage
func IncreaseStageFailures(stage string) {
	stageFailuresMetric.With(prometheus.Labels{stageLabel: stage}).Inc()
}

// IncreaseEmbeddings counts an embedding attempt
func IncreaseEmbeddings(status string) {
	embeddingsMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

// IncreaseFollowupFailures counts a failed follow-up enqueue
func IncreaseFollowupFailures() {
	followupFailuresMetric.Inc()
}

// IncreaseWorkflowJobs counts a job the worker finished
func IncreaseWorkflowJobs(jobType, status string) {
	workflowJobsMetric.With(prometheus.Labels{jobTypeLabel: jobType, statusLabel: status}).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(runsTotalMetric)
	prometheus.MustRegister(stageDurationMetric)
	prometheus.MustRegister(stageFailuresMetric)
	prometheus.MustRegister(embeddingsMetric)
	prometheus.MustRegister(followupFailuresMetric)
	prometheus.MustRegister(workflowJobsMetric)
}
