package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/users"
)

// AccountCreator creates user accounts. *users.Service satisfies it.
type AccountCreator interface {
	Create(ctx context.Context, in users.CreateInput) (*users.User, error)
}

// SeedAdmin creates the first administrator. An existing account with the same
// email is left untouched and reported through created=false.
func SeedAdmin(ctx context.Context, accounts AccountCreator, email, password, name string) (user *users.User, created bool, err error) {
	in := users.CreateInput{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
		Name:     name,
		Role:     rbac.RoleAdmin.String(),
	}
	if in.Name == "" {
		in.Name = "Administrator"
	}
	if err := httpx.Validate(httpx.NewValidator(), &in); err != nil {
		return nil, false, err
	}
	user, err = accounts.Create(ctx, in)
	if errors.Is(err, users.ErrEmailTaken) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
