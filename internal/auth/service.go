package auth

import (
	"context"
	"errors"
	"time"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/users"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	Get(ctx context.Context, id string) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Update(ctx context.Context, id string, fields docstore.Document) error
}

// AccountCreator registers new accounts.
type AccountCreator interface {
	Create(ctx context.Context, in users.CreateInput) (*users.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	accounts AccountCreator
	tokens   TokenIssuer
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, accounts AccountCreator, tokens TokenIssuer) *Service {
	return &Service{repo: repo, accounts: accounts, tokens: tokens, now: time.Now}
}

// Authenticate validates email/password credentials. Unknown addresses and wrong passwords
// are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !users.CheckPassword(user.PasswordHash, password) {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.NewAuthError(shared.AuthAccountDeactivated)
	}
	return user, nil
}

// Login authenticates and issues a token, stamping lastLoginAt.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.repo.Update(ctx, user.ID, docstore.Document{"lastLoginAt": now}); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return s.issue(user)
}

// Register creates an active student account and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	user, err := s.accounts.Create(ctx, users.CreateInput{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
		Role:     rbac.RoleStudent.String(),
		Phone:    in.Phone,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Me returns the stored account of the principal.
func (s *Service) Me(ctx context.Context, p rbac.Principal) (*users.User, error) {
	return s.repo.Get(ctx, p.ID)
}

// ChangePassword verifies the current password and stores the new one.
func (s *Service) ChangePassword(ctx context.Context, p rbac.Principal, in ChangePasswordInput) error {
	return s.accounts.ChangePassword(ctx, p.ID, in.CurrentPassword, in.NewPassword)
}

func (s *Service) issue(user *users.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(expiresAt.Sub(s.now()).Seconds()),
		User:      user,
	}, nil
}
