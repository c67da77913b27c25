package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "pipeline_runs_total",
			Help:      "Total number of error-remediation runs, partitioned by terminal outcome.",
		},
		[]string{"outcome"},
	)

	pipelineDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "remedy_engine",
			Name:      "pipeline_seconds",
			Help:      "End-to-end remediation run latency in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "actions_total",
			Help:      "Fix-plan actions executed, partitioned by action type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	activeAttempts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "remedy_engine",
			Name:      "active_attempts",
			Help:      "Automated fix executions currently in flight.",
		},
	)

	reviewQueueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "review_queue_total",
			Help:      "Errors routed to the human review queue.",
		},
	)
)

// Register attaches remedy-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pipelineRunsTotal,
		pipelineDurationSeconds,
		actionsTotal,
		activeAttempts,
		reviewQueueTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records the duration and terminal outcome of one remediation run.
func ObserveRun(duration time.Duration, outcome string) {
	pipelineRunsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	pipelineDurationSeconds.Observe(duration.Seconds())
}

// ObserveAction counts an executed action by type and result.
func ObserveAction(actionType string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	actionsTotal.WithLabelValues(actionType, outcome).Inc()
}

// SetActiveAttempts reflects the current active-attempt set size.
func SetActiveAttempts(n int) {
	activeAttempts.Set(float64(n))
}

// IncReviewQueued counts an error handed to human review.
func IncReviewQueued() {
	reviewQueueTotal.Inc()
}
