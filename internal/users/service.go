package users

import (
	"context"
	"errors"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, filter ListFilter) ([]User, error)
	Create(ctx context.Context, u User) (*User, error)
	Update(ctx context.Context, id string, fields docstore.Document) error
	Delete(ctx context.Context, id string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo       RepositoryPort
	audit      AuditPort
	bcryptCost int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, bcryptCost int) *Service {
	return &Service{repo: repo, audit: audit, bcryptCost: bcryptCost}
}

// Create registers a new account. New accounts start active.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		IsActive:     true,
		Phone:        strings.TrimSpace(in.Phone),
		Department:   strings.TrimSpace(in.Department),
	})
}

// ListUsers returns users matching filter.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	return s.repo.ListUsers(ctx, filter)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	fields := docstore.Document{}
	if in.Email != nil {
		if err := s.ensureEmailFree(ctx, *in.Email, id); err != nil {
			return nil, err
		}
		fields["email"] = NormalizeEmail(*in.Email)
	}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		role, err := rbac.ParseRole(*in.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		fields["role"] = role.String()
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Department != nil {
		fields["department"] = strings.TrimSpace(*in.Department)
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, id)
}

// SetStatus activates or deactivates an account. An actor cannot deactivate themselves.
func (s *Service) SetStatus(ctx context.Context, actor rbac.Principal, id string, active bool) (*User, error) {
	if !active && actor.ID == id {
		return nil, ErrSelfAction
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, docstore.Document{"isActive": active}); err != nil {
		return nil, err
	}
	action := "users:activate"
	if !active {
		action = "users:deactivate"
	}
	s.record(ctx, actor, action, id, nil)
	return s.repo.Get(ctx, id)
}

// Delete removes an account. An actor cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, id string) error {
	if actor.ID == id {
		return ErrSelfAction
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "users:delete", id, nil)
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CheckPassword(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	hash, err := HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id, docstore.Document{"passwordHash": hash})
}

func (s *Service) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrEmailTaken
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   shared.CollectionUsers,
		EntityID: id,
		Meta:     meta,
	})
}
