package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/campus-erp/internal/fees"
	jobmetrics "github.com/odyssey-erp/campus-erp/internal/jobs"
	"github.com/odyssey-erp/campus-erp/internal/students"
)

// OverdueScanPayload optionally pins the scan date; empty means now.
type OverdueScanPayload struct {
	AsOf string `json:"asOf,omitempty"`
}

// NewOverdueScanTask constructs the scan task.
func NewOverdueScanTask(asOf string) (*asynq.Task, error) {
	data, err := json.Marshal(OverdueScanPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeFeesOverdueScan, data), nil
}

// FeeMarker moves past-due fees to overdue. *fees.Service satisfies it.
type FeeMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) ([]fees.Fee, error)
}

// StudentLookup resolves the student a fee belongs to.
type StudentLookup interface {
	Get(ctx context.Context, id string) (*students.Student, error)
}

// MailEnqueuer queues e-mails. *Client satisfies it.
type MailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// OverdueScanJob marks unpaid fees past their due date overdue and reminds the students.
type OverdueScanJob struct {
	Fees     FeeMarker
	Students StudentLookup
	Mail     MailEnqueuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(marker FeeMarker, lookup StudentLookup, mail MailEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Fees:     marker,
		Students: lookup,
		Mail:     mail,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Fees == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	start := j.clock()
	asOf := start
	if payload.AsOf != "" {
		parsed, perr := time.Parse("2006-01-02", payload.AsOf)
		if perr != nil {
			return fmt.Errorf("overdue scan: asOf: %v: %w", perr, asynq.SkipRetry)
		}
		asOf = parsed
	}

	logger := j.logger().With(slog.Time("as_of", asOf))
	logger.Info("starting overdue fee scan")

	marked, err := j.Fees.MarkOverdue(ctx, asOf)
	j.Metrics.AddOverdue(len(marked))
	if err != nil {
		logger.Error("overdue scan failed", slog.Int("marked", len(marked)), slog.Any("error", err))
		return err
	}

	reminded := 0
	for i := range marked {
		if j.remind(ctx, logger, &marked[i]) {
			reminded++
		}
	}
	logger.Info("completed overdue fee scan",
		slog.Int("marked", len(marked)),
		slog.Int("reminded", reminded),
		slog.Duration("duration", j.clock().Sub(start)),
	)
	return nil
}

// remind is best effort per fee; one failure does not stop the scan.
func (j *OverdueScanJob) remind(ctx context.Context, logger *slog.Logger, fee *fees.Fee) bool {
	if j.Mail == nil || j.Students == nil {
		return false
	}
	st, err := j.Students.Get(ctx, fee.StudentID)
	if err != nil {
		logger.Warn("overdue reminder: load student", slog.String("fee", fee.ID), slog.Any("error", err))
		return false
	}
	if st.Email == "" {
		return false
	}
	_, err = j.Mail.EnqueueSendEmail(ctx, ReminderEmail(st, fee))
	j.Metrics.AddReminder(err)
	if err != nil {
		logger.Warn("overdue reminder: enqueue", slog.String("fee", fee.ID), slog.Any("error", err))
		return false
	}
	return true
}

// ReminderEmail renders the overdue notice for a fee.
func ReminderEmail(st *students.Student, fee *fees.Fee) SendEmailPayload {
	return SendEmailPayload{
		To:      st.Email,
		Subject: "Fee overdue: " + fee.Type,
		Body: fmt.Sprintf("Dear %s,\n\nYour %s fee of %.2f was due on %s. The outstanding balance is %.2f.",
			st.Name, fee.Type, fee.Amount, fee.DueDate.Format("02 Jan 2006"), fee.Outstanding()),
	}
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
