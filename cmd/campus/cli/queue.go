package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/campus-erp/jobs"
)

const (
	manualMaxRetry    = 3
	defaultListLength = 20
)

// Enqueuer is the part of *asynq.Client the operator commands use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Inspector is the part of *asynq.Inspector the operator commands use.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// Queue runs operator commands against the default job queue.
type Queue struct {
	enqueuer  Enqueuer
	inspector Inspector
}

// NewQueue connects a client and an inspector to the queue's Redis.
func NewQueue(opts asynq.RedisClientOpt) *Queue {
	return &Queue{enqueuer: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases both connections.
func (q *Queue) Close() error {
	return errors.Join(q.inspector.Close(), q.enqueuer.Close())
}

// Trigger enqueues a job by task type. arg is the pinned scan date for the overdue scan
// and the recipient for a test mail.
func (q *Queue) Trigger(ctx context.Context, name, arg string) (*asynq.TaskInfo, error) {
	task, err := BuildTask(name, arg)
	if err != nil {
		return nil, err
	}
	return q.enqueuer.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(manualMaxRetry))
}

// BuildTask maps a task type onto a ready task.
func BuildTask(name, arg string) (*asynq.Task, error) {
	switch name {
	case jobs.TaskTypeFeesOverdueScan:
		if arg != "" {
			if _, err := time.Parse(time.DateOnly, arg); err != nil {
				return nil, fmt.Errorf("jobs cli: scan date %q is not YYYY-MM-DD", arg)
			}
		}
		return jobs.NewOverdueScanTask(arg)
	case jobs.TaskTypeSendEmail:
		if arg == "" {
			return nil, errors.New("jobs cli: recipient required")
		}
		return jobs.NewSendEmailTask(jobs.SendEmailPayload{
			To:      arg,
			Subject: "Campus ERP test message",
			Body:    "This is a test message from the campus job queue.",
		})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// Stats writes the default queue's counters as an aligned table.
func (q *Queue) Stats(w io.Writer) error {
	info, err := q.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return fmt.Errorf("jobs cli: queue info: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPAUSED\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%d\t%d\t%d\n",
		info.Queue, info.Paused, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived)
	return tw.Flush()
}

// Scheduled writes up to limit scheduled tasks, soonest first as asynq returns them.
func (q *Queue) Scheduled(w io.Writer, limit int) error {
	if limit <= 0 {
		limit = defaultListLength
	}
	tasks, err := q.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(limit), asynq.Page(1))
	if err != nil {
		return fmt.Errorf("jobs cli: scheduled tasks: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNEXT RUN")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", task.ID, task.Type, task.NextProcessAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
