package jobmetrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(m *Metrics, taskType string, result error) error {
	var during float64
	h := m.Middleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		if m != nil {
			during = testutil.ToFloat64(m.inFlight.WithLabelValues(taskType))
		}
		return result
	}))
	err := h.ProcessTask(context.Background(), asynq.NewTask(taskType, nil))
	if m != nil && during != 1 {
		return fmt.Errorf("in flight while running = %v", during)
	}
	return err
}

func TestMiddlewareRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, run(m, "fees:overdue_scan", nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, run(m, "fees:overdue_scan", boom))
	skipped := fmt.Errorf("bad payload: %w", asynq.SkipRetry)
	assert.ErrorIs(t, run(m, "mail:send", skipped), asynq.SkipRetry)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("fees:overdue_scan", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("fees:overdue_scan", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:send", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("fees:overdue_scan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("mail:send")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("fees:overdue_scan")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestFeeCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddOverdue(3)
	m.AddOverdue(0)
	m.AddReminder(nil)
	m.AddReminder(nil)
	m.AddReminder(errors.New("queue down"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.overdue))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reminders.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reminders.WithLabelValues("failed")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, run(m, "x", nil))
	m.AddOverdue(1)
	m.AddReminder(nil)
}
