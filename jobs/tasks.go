package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeFeesOverdueScan marks past-due fees overdue and queues reminders.
	TaskTypeFeesOverdueScan = "fees:overdue_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// MailJob delivers queued e-mails.
type MailJob struct {
	Logger *slog.Logger
}

// NewMailJob initialises the mail handler.
func NewMailJob(logger *slog.Logger) *MailJob {
	return &MailJob{Logger: logger}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.To == "" {
		return asynq.SkipRetry
	}
	// TODO: deliver through SMTP once relay credentials are provisioned; logged only for now.
	j.logger().Info("send email",
		slog.String("to", payload.To),
		slog.String("subject", payload.Subject),
	)
	return nil
}

func (j *MailJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
