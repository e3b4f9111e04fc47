package hostels

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Repository persists hostels and the housing fields of student records.
type Repository struct {
	store docstore.Store
}

// NewRepository constructs a repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Get loads a hostel by id.
func (r *Repository) Get(ctx context.Context, id string) (*Hostel, error) {
	doc, err := r.store.Get(ctx, shared.CollectionHostels, id)
	if err != nil {
		return nil, fmt.Errorf("hostels: get: %w", err)
	}
	if doc == nil {
		return nil, ErrHostelNotFound
	}
	return FromDocument(doc)
}

// List returns hostels ordered by name. A non-empty wardenID keeps only hostels run by
// that warden.
func (r *Repository) List(ctx context.Context, wardenID string) ([]Hostel, error) {
	q := docstore.Query{OrderBy: &docstore.OrderBy{Field: "name"}}
	if wardenID != "" {
		q.Filters = append(q.Filters, docstore.Where("warden.userId", docstore.OpEqual, wardenID))
	}
	docs, err := docstore.Collect(r.store.Query(ctx, shared.CollectionHostels, q))
	if err != nil {
		return nil, fmt.Errorf("hostels: list: %w", err)
	}
	out := make([]Hostel, 0, len(docs))
	for _, doc := range docs {
		h, err := FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, nil
}

// Create stores a new hostel and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, h Hostel) (*Hostel, error) {
	doc, err := docstore.Encode(h)
	if err != nil {
		return nil, fmt.Errorf("hostels: create: %w", err)
	}
	delete(doc, docstore.FieldID)
	delete(doc, docstore.FieldCreatedAt)
	delete(doc, docstore.FieldUpdatedAt)
	id, err := docstore.Create(ctx, r.store, shared.CollectionHostels, doc)
	if err != nil {
		return nil, fmt.Errorf("hostels: create: %w", err)
	}
	return r.Get(ctx, id)
}

// Update merges fields into the hostel document.
func (r *Repository) Update(ctx context.Context, id string, fields docstore.Document) error {
	if err := r.store.Update(ctx, shared.CollectionHostels, id, fields); err != nil {
		return fmt.Errorf("hostels: update: %w", err)
	}
	return nil
}

// Delete removes the hostel document.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, shared.CollectionHostels, id); err != nil {
		return fmt.Errorf("hostels: delete: %w", err)
	}
	return nil
}

// Housing is the hostel placement recorded on a student.
type Housing struct {
	HostelID   string `json:"hostelId"`
	RoomNumber string `json:"roomNumber"`
}

// StudentHousing loads the placement of a student. ok is false when the student is missing.
func (r *Repository) StudentHousing(ctx context.Context, studentID string) (Housing, bool, error) {
	doc, err := r.store.Get(ctx, shared.CollectionStudents, studentID)
	if err != nil {
		return Housing{}, false, fmt.Errorf("hostels: load student: %w", err)
	}
	if doc == nil {
		return Housing{}, false, nil
	}
	var h Housing
	if err := docstore.Decode(doc, &h); err != nil {
		return Housing{}, false, fmt.Errorf("hostels: decode student %s: %w", studentID, err)
	}
	return h, true, nil
}

// SetStudentHousing records the placement on the student.
func (r *Repository) SetStudentHousing(ctx context.Context, studentID string, h Housing) error {
	err := r.store.Update(ctx, shared.CollectionStudents, studentID, docstore.Document{
		"hostelId":   h.HostelID,
		"roomNumber": h.RoomNumber,
	})
	if err != nil {
		return fmt.Errorf("hostels: update student: %w", err)
	}
	return nil
}

// FromDocument decodes a stored hostel document.
func FromDocument(doc docstore.Document) (*Hostel, error) {
	var h Hostel
	if err := docstore.Decode(doc, &h); err != nil {
		return nil, fmt.Errorf("hostels: decode %s: %w", doc.ID(), err)
	}
	if h.Rooms == nil {
		h.Rooms = []Room{}
	}
	for i := range h.Rooms {
		if h.Rooms[i].Occupants == nil {
			h.Rooms[i].Occupants = []string{}
		}
	}
	if h.Facilities == nil {
		h.Facilities = []string{}
	}
	return &h, nil
}
