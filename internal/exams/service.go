package exams

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// RepositoryPort defines data access methods for exams.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (*Exam, error)
	List(ctx context.Context, filter ListFilter) ([]Exam, error)
	Create(ctx context.Context, e Exam) (*Exam, error)
	Update(ctx context.Context, id string, fields docstore.Document) error
	Delete(ctx context.Context, id string) error
	StudentExists(ctx context.Context, studentID string) (bool, error)
	GetRegistration(ctx context.Context, id string) (*Registration, error)
	FindRegistration(ctx context.Context, examID, studentID string) (*Registration, error)
	StudentRegistrations(ctx context.Context, studentID string) ([]Registration, error)
	CreateRegistration(ctx context.Context, reg Registration) (*Registration, error)
	UpdateRegistration(ctx context.Context, id string, fields docstore.Document) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles exams, registrations and results.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Create schedules an exam.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in CreateInput) (*Exam, error) {
	if in.RegistrationDeadline.After(in.Date) {
		return nil, ErrDeadlineAfterExam
	}
	e, err := s.repo.Create(ctx, Exam{
		Name:                 strings.TrimSpace(in.Name),
		CourseCode:           strings.ToUpper(strings.TrimSpace(in.CourseCode)),
		Department:           strings.TrimSpace(in.Department),
		Semester:             in.Semester,
		Date:                 in.Date.UTC(),
		DurationMinutes:      in.DurationMinutes,
		MaxMarks:             in.MaxMarks,
		RegistrationDeadline: in.RegistrationDeadline.UTC(),
		Status:               StatusScheduled,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "exams:create", shared.CollectionExams, e.ID)
	return e, nil
}

// List returns exams matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Exam, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one exam.
func (s *Service) Get(ctx context.Context, id string) (*Exam, error) {
	return s.repo.Get(ctx, id)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, id string, in UpdateInput) (*Exam, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := docstore.Document{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Date != nil {
		e.Date = in.Date.UTC()
		fields["date"] = e.Date
	}
	if in.RegistrationDeadline != nil {
		e.RegistrationDeadline = in.RegistrationDeadline.UTC()
		fields["registrationDeadline"] = e.RegistrationDeadline
	}
	if e.RegistrationDeadline.After(e.Date) {
		return nil, ErrDeadlineAfterExam
	}
	if in.DurationMinutes != nil {
		fields["durationMinutes"] = *in.DurationMinutes
	}
	if in.MaxMarks != nil {
		fields["maxMarks"] = *in.MaxMarks
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
		s.record(ctx, actor, "exams:update", shared.CollectionExams, id)
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an exam and its registrations.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "exams:delete", shared.CollectionExams, id)
	return nil
}

// Register enrols a student for an exam before its deadline.
func (s *Service) Register(ctx context.Context, actor rbac.Principal, examID string, in RegisterInput) (*Registration, error) {
	e, err := s.repo.Get(ctx, examID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusScheduled {
		return nil, ErrExamClosed
	}
	now := s.now().UTC()
	if now.After(e.RegistrationDeadline) {
		return nil, ErrDeadlinePassed
	}
	studentID := strings.TrimSpace(in.StudentID)
	ok, err := s.repo.StudentExists(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStudentNotFound
	}
	existing, err := s.repo.FindRegistration(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}
	reg, err := s.repo.CreateRegistration(ctx, Registration{
		ExamID:       examID,
		StudentID:    studentID,
		Status:       RegistrationRegistered,
		RegisteredAt: now,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "exams:register", shared.CollectionExamRegistrations, reg.ID)
	return reg, nil
}

// StudentRegistrations lists the registrations of a student.
func (s *Service) StudentRegistrations(ctx context.Context, studentID string) ([]Registration, error) {
	return s.repo.StudentRegistrations(ctx, studentID)
}

// RecordResult stores marks for a registration and derives the grade.
func (s *Service) RecordResult(ctx context.Context, actor rbac.Principal, registrationID string, in ResultInput) (*Registration, error) {
	reg, err := s.repo.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, reg.ExamID)
	if err != nil {
		return nil, err
	}
	marks := *in.Marks
	if marks > e.MaxMarks {
		return nil, ErrMarksExceedMax
	}
	fields := docstore.Document{
		"marks":  marks,
		"grade":  GradeFor(marks, e.MaxMarks),
		"status": RegistrationGraded,
	}
	if err := s.repo.UpdateRegistration(ctx, registrationID, fields); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "exams:result", shared.CollectionExamRegistrations, registrationID)
	return s.repo.GetRegistration(ctx, registrationID)
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action, entity, id string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   entity,
		EntityID: id,
	})
}
