package exams

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Repository persists exams and registrations in the document store.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Get loads an exam by id.
func (r *Repository) Get(ctx context.Context, id string) (*Exam, error) {
	doc, err := r.store.Get(ctx, shared.CollectionExams, id)
	if err != nil {
		return nil, fmt.Errorf("exams: get: %w", err)
	}
	if doc == nil {
		return nil, ErrExamNotFound
	}
	var e Exam
	if err := docstore.Decode(doc, &e); err != nil {
		return nil, fmt.Errorf("exams: decode %s: %w", id, err)
	}
	return &e, nil
}

// List returns exams matching filter ordered by date.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Exam, error) {
	q := docstore.Query{OrderBy: &docstore.OrderBy{Field: "date"}}
	if filter.Department != "" {
		q.Filters = append(q.Filters, docstore.Where("department", docstore.OpEqual, filter.Department))
	}
	if filter.Semester > 0 {
		q.Filters = append(q.Filters, docstore.Where("semester", docstore.OpEqual, filter.Semester))
	}
	if filter.Status != "" {
		q.Filters = append(q.Filters, docstore.Where("status", docstore.OpEqual, string(filter.Status)))
	}
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionExams, q))
	if err != nil {
		return nil, fmt.Errorf("exams: list: %w", err)
	}
	out := make([]Exam, 0, len(docs))
	for _, doc := range docs {
		var e Exam
		if err := docstore.Decode(doc, &e); err != nil {
			return nil, fmt.Errorf("exams: decode %s: %w", doc.ID(), err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Create stores a new exam and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, e Exam) (*Exam, error) {
	id, err := r.create(ctx, shared.CollectionExams, e)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update merges fields into the exam document.
func (r *Repository) Update(ctx context.Context, id string, fields docstore.Document) error {
	if err := r.store.Update(ctx, shared.CollectionExams, id, fields); err != nil {
		return fmt.Errorf("exams: update: %w", err)
	}
	return nil
}

// Delete removes an exam together with its registrations.
func (r *Repository) Delete(ctx context.Context, id string) error {
	regs, err := r.registrations(ctx, docstore.Where("examId", docstore.OpEqual, id))
	if err != nil {
		return err
	}
	for _, reg := range regs {
		if err := r.store.Delete(ctx, shared.CollectionExamRegistrations, reg.ID); err != nil {
			return fmt.Errorf("exams: delete registration: %w", err)
		}
	}
	if err := r.store.Delete(ctx, shared.CollectionExams, id); err != nil {
		return fmt.Errorf("exams: delete: %w", err)
	}
	return nil
}

// StudentExists reports whether the student record is present.
func (r *Repository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	ok, err := r.store.Exists(ctx, shared.CollectionStudents, studentID)
	if err != nil {
		return false, fmt.Errorf("exams: student exists: %w", err)
	}
	return ok, nil
}

// GetRegistration loads a registration by id.
func (r *Repository) GetRegistration(ctx context.Context, id string) (*Registration, error) {
	doc, err := r.store.Get(ctx, shared.CollectionExamRegistrations, id)
	if err != nil {
		return nil, fmt.Errorf("exams: get registration: %w", err)
	}
	if doc == nil {
		return nil, ErrRegistrationNotFound
	}
	var reg Registration
	if err := docstore.Decode(doc, &reg); err != nil {
		return nil, fmt.Errorf("exams: decode registration %s: %w", id, err)
	}
	return &reg, nil
}

// FindRegistration returns the registration of a student for an exam, or nil.
func (r *Repository) FindRegistration(ctx context.Context, examID, studentID string) (*Registration, error) {
	regs, err := r.registrations(ctx,
		docstore.Where("examId", docstore.OpEqual, examID),
		docstore.Where("studentId", docstore.OpEqual, studentID),
	)
	if err != nil || len(regs) == 0 {
		return nil, err
	}
	return &regs[0], nil
}

// StudentRegistrations returns every registration of a student, newest first.
func (r *Repository) StudentRegistrations(ctx context.Context, studentID string) ([]Registration, error) {
	return r.registrations(ctx, docstore.Where("studentId", docstore.OpEqual, studentID))
}

// CreateRegistration stores a registration and returns it with its generated id.
func (r *Repository) CreateRegistration(ctx context.Context, reg Registration) (*Registration, error) {
	id, err := r.create(ctx, shared.CollectionExamRegistrations, reg)
	if err != nil {
		return nil, err
	}
	return r.GetRegistration(ctx, id)
}

// UpdateRegistration merges fields into the registration document.
func (r *Repository) UpdateRegistration(ctx context.Context, id string, fields docstore.Document) error {
	if err := r.store.Update(ctx, shared.CollectionExamRegistrations, id, fields); err != nil {
		return fmt.Errorf("exams: update registration: %w", err)
	}
	return nil
}

func (r *Repository) registrations(ctx context.Context, filters ...docstore.Filter) ([]Registration, error) {
	q := docstore.Query{Filters: filters, OrderBy: &docstore.OrderBy{Field: "registeredAt", Desc: true}}
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionExamRegistrations, q))
	if err != nil {
		return nil, fmt.Errorf("exams: list registrations: %w", err)
	}
	out := make([]Registration, 0, len(docs))
	for _, doc := range docs {
		var reg Registration
		if err := docstore.Decode(doc, &reg); err != nil {
			return nil, fmt.Errorf("exams: decode registration %s: %w", doc.ID(), err)
		}
		out = append(out, reg)
	}
	return out, nil
}

func (r *Repository) create(ctx context.Context, collection string, v any) (string, error) {
	doc, err := docstore.Encode(v)
	if err != nil {
		return "", fmt.Errorf("exams: create: %w", err)
	}
	delete(doc, docstore.FieldID)
	delete(doc, docstore.FieldCreatedAt)
	delete(doc, docstore.FieldUpdatedAt)
	id, err := docstore.Create(ctx, r.store, collection, doc)
	if err != nil {
		return "", fmt.Errorf("exams: create: %w", err)
	}
	return id, nil
}
