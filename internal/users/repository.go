package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Repository persists users in the document store.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Get loads a user by id.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	doc, err := r.store.Get(ctx, shared.CollectionUsers, id)
	if err != nil {
		return nil, fmt.Errorf("users: get: %w", err)
	}
	if doc == nil {
		return nil, ErrUserNotFound
	}
	return FromDocument(doc)
}

// FindByEmail loads a user by normalised e-mail address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	q := docstore.Query{
		Filters: []docstore.Filter{docstore.Where("email", docstore.OpEqual, NormalizeEmail(email))},
		Limit:   1,
	}
	for doc, err := range r.store.Query(ctx, shared.CollectionUsers, q) {
		if err != nil {
			return nil, fmt.Errorf("users: find by email: %w", err)
		}
		return FromDocument(doc)
	}
	return nil, ErrUserNotFound
}

// ListUsers returns users matching filter, newest first.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	q := docstore.Query{OrderBy: &docstore.OrderBy{Field: docstore.FieldCreatedAt, Desc: true}}
	if filter.Role.Valid() {
		q.Filters = append(q.Filters, docstore.Where("role", docstore.OpEqual, filter.Role.String()))
	}
	if filter.IsActive != nil {
		q.Filters = append(q.Filters, docstore.Where("isActive", docstore.OpEqual, *filter.IsActive))
	}
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionUsers, q))
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		u, err := FromDocument(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

// Create stores a new user and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, u User) (*User, error) {
	doc, err := docstore.Encode(record{
		Email:        NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Role:         u.Role.String(),
		IsActive:     u.IsActive,
		Phone:        u.Phone,
		Department:   u.Department,
	})
	if err != nil {
		return nil, fmt.Errorf("users: create: %w", err)
	}
	delete(doc, docstore.FieldCreatedAt)
	delete(doc, docstore.FieldUpdatedAt)
	id, err := docstore.Create(ctx, r.store, shared.CollectionUsers, doc)
	if err != nil {
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return r.Get(ctx, id)
}

// Update merges fields into the user document.
func (r *Repository) Update(ctx context.Context, id string, fields docstore.Document) error {
	if err := r.store.Update(ctx, shared.CollectionUsers, id, fields); err != nil {
		return fmt.Errorf("users: update: %w", err)
	}
	return nil
}

// Exists reports whether a user id is present.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, shared.CollectionUsers, id)
	if err != nil {
		return false, fmt.Errorf("users: exists: %w", err)
	}
	return ok, nil
}

// Delete removes the user document.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, shared.CollectionUsers, id); err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	return nil
}

// FromDocument decodes a stored user document.
func FromDocument(doc docstore.Document) (*User, error) {
	var rec record
	if err := docstore.Decode(doc, &rec); err != nil {
		return nil, fmt.Errorf("users: decode %s: %w", doc.ID(), err)
	}
	role, _ := rbac.ParseRole(rec.Role)
	return &User{
		ID:           doc.ID(),
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Name:         rec.Name,
		Role:         role,
		IsActive:     rec.IsActive,
		Phone:        rec.Phone,
		Department:   rec.Department,
		LastLoginAt:  rec.LastLoginAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// NormalizeEmail lower-cases and trims an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
