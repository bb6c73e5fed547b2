// Package metrics exposes Prometheus collectors for optimization runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vqo"

// Job statuses tracked by the jobs gauge.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// Collector groups the optimizer metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	evaluations *prometheus.CounterVec
	bestValue   *prometheus.GaugeVec
	duration    *prometheus.HistogramVec
	jobs        *prometheus.GaugeVec
}

// NewCollector creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objective_evaluations_total",
			Help:      "Number of objective evaluations by optimizer.",
		}, []string{"optimizer"}),
		bestValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_value",
			Help:      "Best objective value of the most recent run by optimizer.",
		}, []string{"optimizer"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_duration_seconds",
			Help:      "Wall time of optimization runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"optimizer"}),
		jobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs",
			Help:      "Optimization jobs by status.",
		}, []string{"status"}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{c.evaluations, c.bestValue, c.duration, c.jobs} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// ObserveEvaluation counts one objective evaluation.
func (c *Collector) ObserveEvaluation(optimizer string) {
	if c == nil {
		return
	}
	c.evaluations.WithLabelValues(optimizer).Inc()
}

// ObserveRun records the outcome of a finished optimization run.
func (c *Collector) ObserveRun(optimizer string, best float64, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.bestValue.WithLabelValues(optimizer).Set(best)
	c.duration.WithLabelValues(optimizer).Observe(elapsed.Seconds())
}

// Jobs returns the gauge counting jobs in status.
func (c *Collector) Jobs(status string) prometheus.Gauge {
	return c.jobs.WithLabelValues(status)
}

// JobTransition moves one job from status from to status to. An empty from
// only increments to.
func (c *Collector) JobTransition(from, to string) {
	if c == nil {
		return
	}
	if from != "" {
		c.jobs.WithLabelValues(from).Dec()
	}
	if to != "" {
		c.jobs.WithLabelValues(to).Inc()
	}
}
