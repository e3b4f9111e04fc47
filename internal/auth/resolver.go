package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/users"
)

const bearerPrefix = "Bearer "

// Resolver turns an Authorization header into an active principal. The user record is
// read on every call and never cached.
type Resolver struct {
	verifier TokenVerifier
	store    docstore.Getter
}

var _ rbac.PrincipalResolver = (*Resolver)(nil)

// NewResolver builds a Resolver.
func NewResolver(verifier TokenVerifier, store docstore.Getter) *Resolver {
	return &Resolver{verifier: verifier, store: store}
}

// Resolve verifies the bearer token before touching the store, then loads the user.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (rbac.Principal, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return rbac.Principal{}, shared.NewAuthError(shared.AuthMissingOrMalformed)
	}
	claims, err := r.verifier.Verify(token)
	if err != nil {
		return rbac.Principal{}, shared.NewAuthError(shared.AuthInvalidOrExpired)
	}
	doc, err := r.store.Get(ctx, shared.CollectionUsers, claims.Subject)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("auth: load principal: %w", err)
	}
	if doc == nil {
		return rbac.Principal{}, shared.NewAuthError(shared.AuthUserNotFound)
	}
	user, err := users.FromDocument(doc)
	if err != nil {
		return rbac.Principal{}, err
	}
	if !user.IsActive {
		return rbac.Principal{}, shared.NewAuthError(shared.AuthAccountDeactivated)
	}
	delete(doc, "passwordHash")
	return rbac.Principal{
		ID:       user.ID,
		Role:     user.Role,
		Email:    user.Email,
		Name:     user.Name,
		IsActive: true,
		Record:   doc,
	}, nil
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
