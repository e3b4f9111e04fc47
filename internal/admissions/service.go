package admissions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/jobs"
)

// RepositoryPort defines data access methods for admissions.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (*Application, error)
	List(ctx context.Context, status Status) ([]Application, error)
	FindOpen(ctx context.Context, email, program string) ([]Application, error)
	Create(ctx context.Context, a Application) (*Application, error)
	Update(ctx context.Context, id string, fields docstore.Document) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Notifier queues applicant e-mails. *jobs.Client satisfies it.
type Notifier interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Service handles admission applications and their review.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance. notifier may be nil.
func NewService(repo RepositoryPort, audit AuditPort, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, logger: logger, now: time.Now}
}

// Apply records a new application in the pending state.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*Application, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	program := strings.TrimSpace(in.Program)
	open, err := s.repo.FindOpen(ctx, email, program)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, ErrDuplicateApplication
	}
	return s.repo.Create(ctx, Application{
		Name:           TitleName(in.Name),
		Email:          email,
		Phone:          strings.TrimSpace(in.Phone),
		DateOfBirth:    in.DateOfBirth,
		Program:        program,
		PreviousSchool: strings.TrimSpace(in.PreviousSchool),
		Percentage:     in.Percentage,
		Status:         StatusPending,
	})
}

// List returns applications, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status) ([]Application, error) {
	return s.repo.List(ctx, status)
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.repo.Get(ctx, id)
}

// UpdateStatus moves an application along the review workflow. Approval and rejection
// notify the applicant.
func (s *Service) UpdateStatus(ctx context.Context, actor rbac.Principal, id string, in StatusInput) (*Application, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := Status(in.Status)
	if !CanTransition(app.Status, next) {
		return nil, ErrInvalidTransition
	}
	now := s.now().UTC()
	fields := docstore.Document{
		"status":     string(next),
		"reviewedBy": actor.ID,
		"reviewedAt": now,
	}
	if remarks := strings.TrimSpace(in.Remarks); remarks != "" {
		fields["remarks"] = remarks
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "admissions:"+string(next), id)
	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if next.Terminal() {
		s.notify(ctx, updated)
	}
	return updated, nil
}

// notify is best effort; a queue outage does not undo the decision.
func (s *Service) notify(ctx context.Context, app *Application) {
	if s.notifier == nil {
		return
	}
	payload := DecisionEmail(app)
	if _, err := s.notifier.EnqueueSendEmail(ctx, payload); err != nil {
		s.logger.Warn("admissions: enqueue decision email", slog.String("application", app.ID), slog.Any("error", err))
	}
}

// DecisionEmail renders the applicant notification for a decided application.
func DecisionEmail(app *Application) jobs.SendEmailPayload {
	verdict := "approved"
	if app.Status == StatusRejected {
		verdict = "not approved"
	}
	body := fmt.Sprintf("Dear %s,\n\nYour application for %s has been %s.", app.Name, app.Program, verdict)
	if app.Remarks != "" {
		body += "\n\nRemarks: " + app.Remarks
	}
	return jobs.SendEmailPayload{
		To:      app.Email,
		Subject: "Admission decision: " + app.Program,
		Body:    body,
	}
}

var titleCaser = cases.Title(language.English)

// TitleName collapses whitespace and title-cases a person's name.
func TitleName(name string) string {
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action, id string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   shared.CollectionAdmissions,
		EntityID: id,
	})
}
