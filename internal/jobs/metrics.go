// Package jobmetrics instruments the background worker.
package jobmetrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcomes. A skipped task failed permanently and will not be retried.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

// Metrics holds the worker collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  *prometheus.GaugeVec
	overdue   prometheus.Counter
	reminders *prometheus.CounterVec
}

// NewMetrics registers the worker collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_jobs_total",
			Help: "Task executions by task type and outcome.",
		}, []string{"job", "status"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_jobs_failures_total",
			Help: "Task executions that returned an error, skipped ones included.",
		}, []string{"job"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_job_duration_seconds",
			Help:    "Task execution time.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "campus_jobs_in_flight",
			Help: "Tasks currently executing.",
		}, []string{"job"}),
		overdue: factory.NewCounter(prometheus.CounterOpts{
			Name: "campus_fees_marked_overdue_total",
			Help: "Fees moved to the overdue state by the scan job.",
		}),
		reminders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_fee_reminders_total",
			Help: "Overdue fee reminder e-mails by enqueue outcome.",
		}, []string{"outcome"}),
	}
}

// Middleware instruments every task the mux dispatches, labelled by task type.
func (m *Metrics) Middleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			if m == nil {
				return next.ProcessTask(ctx, t)
			}
			job := t.Type()
			gauge := m.inFlight.WithLabelValues(job)
			gauge.Inc()
			defer gauge.Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, t)
			m.observe(job, time.Since(start), err)
			return err
		})
	}
}

func (m *Metrics) observe(job string, elapsed time.Duration, err error) {
	status := outcomeSuccess
	switch {
	case errors.Is(err, asynq.SkipRetry):
		status = outcomeSkipped
	case err != nil:
		status = outcomeFailure
	}
	if err != nil {
		m.failures.WithLabelValues(job).Inc()
	}
	m.runs.WithLabelValues(job, status).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// AddOverdue counts fees moved to the overdue state.
func (m *Metrics) AddOverdue(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.overdue.Add(float64(count))
}

// AddReminder counts one reminder enqueue attempt by outcome.
func (m *Metrics) AddReminder(err error) {
	if m == nil {
		return
	}
	outcome := "queued"
	if err != nil {
		outcome = "failed"
	}
	m.reminders.WithLabelValues(outcome).Inc()
}
