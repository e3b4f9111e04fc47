package admissions

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Repository persists applications in the document store.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Get loads an application by id.
func (r *Repository) Get(ctx context.Context, id string) (*Application, error) {
	doc, err := r.store.Get(ctx, shared.CollectionAdmissions, id)
	if err != nil {
		return nil, fmt.Errorf("admissions: get: %w", err)
	}
	if doc == nil {
		return nil, ErrApplicationNotFound
	}
	return FromDocument(doc)
}

// List returns applications newest first, optionally narrowed to one status.
func (r *Repository) List(ctx context.Context, status Status) ([]Application, error) {
	q := docstore.Query{OrderBy: &docstore.OrderBy{Field: docstore.FieldCreatedAt, Desc: true}}
	if status != "" {
		q.Filters = append(q.Filters, docstore.Where("status", docstore.OpEqual, string(status)))
	}
	return r.query(ctx, q)
}

// FindOpen returns the in-progress applications of an applicant for a program.
func (r *Repository) FindOpen(ctx context.Context, email, program string) ([]Application, error) {
	apps, err := r.query(ctx, docstore.Query{Filters: []docstore.Filter{
		docstore.Where("email", docstore.OpEqual, email),
		docstore.Where("program", docstore.OpEqual, program),
	}})
	if err != nil {
		return nil, err
	}
	open := apps[:0]
	for _, a := range apps {
		if !a.Status.Terminal() {
			open = append(open, a)
		}
	}
	return open, nil
}

func (r *Repository) query(ctx context.Context, q docstore.Query) ([]Application, error) {
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionAdmissions, q))
	if err != nil {
		return nil, fmt.Errorf("admissions: query: %w", err)
	}
	out := make([]Application, 0, len(docs))
	for _, doc := range docs {
		a, err := FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// Create stores a new application and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, a Application) (*Application, error) {
	doc, err := docstore.Encode(a)
	if err != nil {
		return nil, fmt.Errorf("admissions: create: %w", err)
	}
	delete(doc, docstore.FieldID)
	delete(doc, docstore.FieldCreatedAt)
	delete(doc, docstore.FieldUpdatedAt)
	id, err := docstore.Create(ctx, r.store, shared.CollectionAdmissions, doc)
	if err != nil {
		return nil, fmt.Errorf("admissions: create: %w", err)
	}
	return r.Get(ctx, id)
}

// Update merges fields into the application document.
func (r *Repository) Update(ctx context.Context, id string, fields docstore.Document) error {
	if err := r.store.Update(ctx, shared.CollectionAdmissions, id, fields); err != nil {
		return fmt.Errorf("admissions: update: %w", err)
	}
	return nil
}

// FromDocument decodes a stored application.
func FromDocument(doc docstore.Document) (*Application, error) {
	var a Application
	if err := docstore.Decode(doc, &a); err != nil {
		return nil, fmt.Errorf("admissions: decode %s: %w", doc.ID(), err)
	}
	return &a, nil
}
