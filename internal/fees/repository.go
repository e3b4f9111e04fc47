package fees

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Repository persists fees in the document store.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Get loads a fee by id.
func (r *Repository) Get(ctx context.Context, id string) (*Fee, error) {
	doc, err := r.store.Get(ctx, shared.CollectionFees, id)
	if err != nil {
		return nil, fmt.Errorf("fees: get: %w", err)
	}
	if doc == nil {
		return nil, ErrFeeNotFound
	}
	return FromDocument(doc)
}

// List returns fees matching filter ordered by due date.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Fee, error) {
	q := docstore.Query{OrderBy: &docstore.OrderBy{Field: "dueDate"}}
	if filter.StudentID != "" {
		q.Filters = append(q.Filters, docstore.Where("studentId", docstore.OpEqual, filter.StudentID))
	}
	if filter.Status != "" {
		q.Filters = append(q.Filters, docstore.Where("status", docstore.OpEqual, string(filter.Status)))
	}
	return r.query(ctx, q)
}

// DueBefore returns fees in status whose due date is earlier than t.
func (r *Repository) DueBefore(ctx context.Context, status Status, t time.Time) ([]Fee, error) {
	return r.query(ctx, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("status", docstore.OpEqual, string(status)),
			docstore.Where("dueDate", docstore.OpLess, t),
		},
		OrderBy: &docstore.OrderBy{Field: "dueDate"},
	})
}

func (r *Repository) query(ctx context.Context, q docstore.Query) ([]Fee, error) {
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionFees, q))
	if err != nil {
		return nil, fmt.Errorf("fees: list: %w", err)
	}
	out := make([]Fee, 0, len(docs))
	for _, doc := range docs {
		f, err := FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

// Create stores a new fee and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, f Fee) (*Fee, error) {
	doc, err := docstore.Encode(f)
	if err != nil {
		return nil, fmt.Errorf("fees: create: %w", err)
	}
	delete(doc, docstore.FieldID)
	delete(doc, docstore.FieldCreatedAt)
	delete(doc, docstore.FieldUpdatedAt)
	id, err := docstore.Create(ctx, r.store, shared.CollectionFees, doc)
	if err != nil {
		return nil, fmt.Errorf("fees: create: %w", err)
	}
	return r.Get(ctx, id)
}

// Update merges fields into the fee document.
func (r *Repository) Update(ctx context.Context, id string, fields docstore.Document) error {
	if err := r.store.Update(ctx, shared.CollectionFees, id, fields); err != nil {
		return fmt.Errorf("fees: update: %w", err)
	}
	return nil
}

// StudentExists reports whether the student record is present.
func (r *Repository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	ok, err := r.store.Exists(ctx, shared.CollectionStudents, studentID)
	if err != nil {
		return false, fmt.Errorf("fees: student exists: %w", err)
	}
	return ok, nil
}

// FromDocument decodes a stored fee document.
func FromDocument(doc docstore.Document) (*Fee, error) {
	var f Fee
	if err := docstore.Decode(doc, &f); err != nil {
		return nil, fmt.Errorf("fees: decode %s: %w", doc.ID(), err)
	}
	if f.Payments == nil {
		f.Payments = []Payment{}
	}
	return &f, nil
}
