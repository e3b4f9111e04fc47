package students

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Repository persists student records in the document store.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Get loads a student by id.
func (r *Repository) Get(ctx context.Context, id string) (*Student, error) {
	doc, err := r.store.Get(ctx, shared.CollectionStudents, id)
	if err != nil {
		return nil, fmt.Errorf("students: get: %w", err)
	}
	if doc == nil {
		return nil, ErrStudentNotFound
	}
	return FromDocument(doc)
}

// FindByUserID returns the student record owned by the account, or nil.
func (r *Repository) FindByUserID(ctx context.Context, userID string) (*Student, error) {
	return r.findOne(ctx, "userId", userID)
}

// FindByRollNumber returns the student with the roll number, or nil.
func (r *Repository) FindByRollNumber(ctx context.Context, roll string) (*Student, error) {
	return r.findOne(ctx, "rollNumber", NormalizeRollNumber(roll))
}

func (r *Repository) findOne(ctx context.Context, field, value string) (*Student, error) {
	q := docstore.Query{Filters: []docstore.Filter{docstore.Where(field, docstore.OpEqual, value)}, Limit: 1}
	for doc, err := range r.store.Query(ctx, shared.CollectionStudents, q) {
		if err != nil {
			return nil, fmt.Errorf("students: find by %s: %w", field, err)
		}
		return FromDocument(doc)
	}
	return nil, nil
}

// List returns students matching filter ordered by roll number.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Student, error) {
	q := docstore.Query{OrderBy: &docstore.OrderBy{Field: "rollNumber"}}
	if filter.Department != "" {
		q.Filters = append(q.Filters, docstore.Where("department", docstore.OpEqual, filter.Department))
	}
	if filter.Year > 0 {
		q.Filters = append(q.Filters, docstore.Where("year", docstore.OpEqual, filter.Year))
	}
	if filter.Status != "" {
		q.Filters = append(q.Filters, docstore.Where("status", docstore.OpEqual, string(filter.Status)))
	}
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionStudents, q))
	if err != nil {
		return nil, fmt.Errorf("students: list: %w", err)
	}
	out := make([]Student, 0, len(docs))
	for _, doc := range docs {
		s, err := FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// Create stores a new student and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, s Student) (*Student, error) {
	doc, err := docstore.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("students: create: %w", err)
	}
	delete(doc, docstore.FieldID)
	delete(doc, docstore.FieldCreatedAt)
	delete(doc, docstore.FieldUpdatedAt)
	id, err := docstore.Create(ctx, r.store, shared.CollectionStudents, doc)
	if err != nil {
		return nil, fmt.Errorf("students: create: %w", err)
	}
	return r.Get(ctx, id)
}

// Update merges fields into the student document.
func (r *Repository) Update(ctx context.Context, id string, fields docstore.Document) error {
	if err := r.store.Update(ctx, shared.CollectionStudents, id, fields); err != nil {
		return fmt.Errorf("students: update: %w", err)
	}
	return nil
}

// Delete removes the student document.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, shared.CollectionStudents, id); err != nil {
		return fmt.Errorf("students: delete: %w", err)
	}
	return nil
}

// FromDocument decodes a stored student document.
func FromDocument(doc docstore.Document) (*Student, error) {
	var s Student
	if err := docstore.Decode(doc, &s); err != nil {
		return nil, fmt.Errorf("students: decode %s: %w", doc.ID(), err)
	}
	return &s, nil
}

// NormalizeRollNumber upper-cases and trims a roll number.
func NormalizeRollNumber(roll string) string {
	return strings.ToUpper(strings.TrimSpace(roll))
}
