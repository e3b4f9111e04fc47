package students

import (
	"context"
	"errors"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/users"
)

// RepositoryPort defines data access methods for students.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (*Student, error)
	FindByUserID(ctx context.Context, userID string) (*Student, error)
	FindByRollNumber(ctx context.Context, roll string) (*Student, error)
	List(ctx context.Context, filter ListFilter) ([]Student, error)
	Create(ctx context.Context, s Student) (*Student, error)
	Update(ctx context.Context, id string, fields docstore.Document) error
	Delete(ctx context.Context, id string) error
}

// AccountPort loads the account a student record links to.
type AccountPort interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles student records.
type Service struct {
	repo     RepositoryPort
	accounts AccountPort
	audit    AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, accounts AccountPort, audit AuditPort) *Service {
	return &Service{repo: repo, accounts: accounts, audit: audit}
}

// Create registers a student record for an existing student-role account.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in CreateInput) (*Student, error) {
	account, err := s.accounts.Get(ctx, strings.TrimSpace(in.UserID))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrUserNotStudent
		}
		return nil, err
	}
	if account.Role != rbac.RoleStudent {
		return nil, ErrUserNotStudent
	}
	linked, err := s.repo.FindByUserID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if linked != nil {
		return nil, ErrUserLinked
	}
	roll := NormalizeRollNumber(in.RollNumber)
	taken, err := s.repo.FindByRollNumber(ctx, roll)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return nil, ErrRollNumberTaken
	}
	created, err := s.repo.Create(ctx, Student{
		UserID:        account.ID,
		RollNumber:    roll,
		Name:          strings.TrimSpace(in.Name),
		Email:         users.NormalizeEmail(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Department:    strings.TrimSpace(in.Department),
		Program:       strings.TrimSpace(in.Program),
		Year:          in.Year,
		Semester:      in.Semester,
		Status:        StatusActive,
		GuardianName:  strings.TrimSpace(in.GuardianName),
		GuardianPhone: strings.TrimSpace(in.GuardianPhone),
		Address:       strings.TrimSpace(in.Address),
		AdmissionDate: in.AdmissionDate,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "students:create", created.ID)
	return created, nil
}

// Get returns one student.
func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	return s.repo.Get(ctx, id)
}

// ForUser returns the record owned by the account.
func (s *Service) ForUser(ctx context.Context, userID string) (*Student, error) {
	st, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrProfileNotFound
	}
	return st, nil
}

// List returns students matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Student, error) {
	return s.repo.List(ctx, filter)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, id string, in UpdateInput) (*Student, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	fields := docstore.Document{}
	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	setString("name", in.Name)
	setString("phone", in.Phone)
	setString("department", in.Department)
	setString("program", in.Program)
	setString("status", in.Status)
	setString("guardianName", in.GuardianName)
	setString("guardianPhone", in.GuardianPhone)
	setString("address", in.Address)
	if in.Email != nil {
		fields["email"] = users.NormalizeEmail(*in.Email)
	}
	if in.Year != nil {
		fields["year"] = *in.Year
	}
	if in.Semester != nil {
		fields["semester"] = *in.Semester
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
		s.record(ctx, actor, "students:update", id)
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a student record. Students still housed in a hostel are refused.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, id string) error {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if st.HostelID != "" {
		return ErrStudentHasHostel
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "students:delete", id)
	return nil
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action, id string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   shared.CollectionStudents,
		EntityID: id,
	})
}
