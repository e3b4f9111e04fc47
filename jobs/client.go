package jobs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
)

const mailMaxRetry = 5

// Client submits tasks to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient connects a queue client to Redis. The connection is lazy, so the error is
// reserved for option problems.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueSendEmail queues one transactional e-mail.
func (c *Client) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	task, err := NewSendEmailTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(mailMaxRetry))
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector reports queue state. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueHealth is the body of the jobs health endpoint.
type QueueHealth struct {
	Queue   string `json:"queue"`
	Paused  bool   `json:"paused"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
	Retry   int    `json:"retry"`
	Failed  int    `json:"failed"`
}

// Handler serves the queue health endpoint.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler builds the health handler. A nil inspector reports an empty queue.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	out := QueueHealth{Queue: QueueDefault}
	if h.inspector != nil {
		info, err := h.inspector.GetQueueInfo(QueueDefault)
		if err != nil {
			h.logger.WarnContext(r.Context(), "jobs health", slog.Any("error", err))
			httpx.Fail(w, http.StatusServiceUnavailable, "Job queue unavailable.")
			return
		}
		if info != nil {
			out = QueueHealth{
				Queue:   info.Queue,
				Paused:  info.Paused,
				Pending: info.Pending,
				Active:  info.Active,
				Retry:   info.Retry,
				Failed:  info.Failed,
			}
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}
