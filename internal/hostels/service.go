package hostels

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/users"
)

// RepositoryPort defines data access methods for hostels.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (*Hostel, error)
	List(ctx context.Context, wardenID string) ([]Hostel, error)
	Create(ctx context.Context, h Hostel) (*Hostel, error)
	Update(ctx context.Context, id string, fields docstore.Document) error
	Delete(ctx context.Context, id string) error
	StudentHousing(ctx context.Context, studentID string) (Housing, bool, error)
	SetStudentHousing(ctx context.Context, studentID string, h Housing) error
}

// AccountPort loads warden accounts.
type AccountPort interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// LockPort serialises allocation changes per hostel.
type LockPort interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles hostels and room allocation.
type Service struct {
	repo     RepositoryPort
	accounts AccountPort
	locks    LockPort
	audit    AuditPort
}

// NewService builds Service instance. locks and audit may be nil.
func NewService(repo RepositoryPort, accounts AccountPort, locks LockPort, audit AuditPort) *Service {
	return &Service{repo: repo, accounts: accounts, locks: locks, audit: audit}
}

// Create registers a hostel.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in CreateInput) (*Hostel, error) {
	h := Hostel{
		Name:       strings.TrimSpace(in.Name),
		Type:       in.Type,
		Address:    strings.TrimSpace(in.Address),
		Rooms:      []Room{},
		Facilities: cleanList(in.Facilities),
	}
	if in.Warden != nil {
		w, err := s.warden(ctx, *in.Warden)
		if err != nil {
			return nil, err
		}
		h.Warden = w
	}
	rooms, err := mergeRooms(nil, in.Rooms)
	if err != nil {
		return nil, err
	}
	h.Rooms = rooms
	created, err := s.repo.Create(ctx, h)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "hostels:create", created.ID, nil)
	return created, nil
}

// List returns the hostels visible to p. Wardens only see the hostels they run.
func (s *Service) List(ctx context.Context, p rbac.Principal) ([]Hostel, error) {
	if p.Role == rbac.RoleWarden {
		return s.repo.List(ctx, p.ID)
	}
	return s.repo.List(ctx, "")
}

// Get returns one hostel.
func (s *Service) Get(ctx context.Context, id string) (*Hostel, error) {
	return s.repo.Get(ctx, id)
}

// Update applies the non-nil fields of in. Only an admin may reassign the warden.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, id string, in UpdateInput) (*Hostel, error) {
	release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := docstore.Document{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		fields["address"] = strings.TrimSpace(*in.Address)
	}
	if in.Facilities != nil {
		fields["facilities"] = cleanList(in.Facilities)
	}
	if in.Warden != nil {
		if actor.Role != rbac.RoleAdmin {
			return nil, ErrWardenReassign
		}
		w, err := s.warden(ctx, *in.Warden)
		if err != nil {
			return nil, err
		}
		fields["warden"] = w
	}
	if in.Rooms != nil {
		rooms, err := mergeRooms(h.Rooms, in.Rooms)
		if err != nil {
			return nil, err
		}
		fields["rooms"] = rooms
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
		s.record(ctx, actor, "hostels:update", id, nil)
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an empty hostel.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, id string) error {
	release, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, occupied := h.Occupancy(); occupied > 0 {
		return ErrHostelOccupied
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "hostels:delete", id, nil)
	return nil
}

// Allocate places a student in a room of the hostel.
func (s *Service) Allocate(ctx context.Context, actor rbac.Principal, hostelID string, in AllocationInput) (*Hostel, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	release, err := s.lockHousing(ctx, hostelID, in.StudentID)
	if err != nil {
		return nil, err
	}
	defer release()

	h, err := s.repo.Get(ctx, hostelID)
	if err != nil {
		return nil, err
	}
	housing, ok, err := s.repo.StudentHousing(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStudentNotFound
	}
	if housing.HostelID != "" {
		return nil, ErrAlreadyHoused
	}
	idx := h.room(strings.TrimSpace(in.RoomNumber))
	if idx < 0 {
		return nil, ErrRoomNotFound
	}
	if h.Rooms[idx].Available() <= 0 {
		return nil, ErrRoomFull
	}
	h.Rooms[idx].Occupants = append(h.Rooms[idx].Occupants, in.StudentID)
	if err := s.repo.Update(ctx, hostelID, docstore.Document{"rooms": h.Rooms}); err != nil {
		return nil, err
	}
	if err := s.repo.SetStudentHousing(ctx, in.StudentID, Housing{HostelID: hostelID, RoomNumber: h.Rooms[idx].Number}); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "hostels:allocate", hostelID, map[string]any{"studentId": in.StudentID, "room": h.Rooms[idx].Number})
	return s.repo.Get(ctx, hostelID)
}

// Vacate removes a student from the hostel.
func (s *Service) Vacate(ctx context.Context, actor rbac.Principal, hostelID string, in VacateInput) (*Hostel, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	release, err := s.lockHousing(ctx, hostelID, in.StudentID)
	if err != nil {
		return nil, err
	}
	defer release()

	h, err := s.repo.Get(ctx, hostelID)
	if err != nil {
		return nil, err
	}
	housing, ok, err := s.repo.StudentHousing(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStudentNotFound
	}
	if housing.HostelID != hostelID {
		return nil, ErrNotHoused
	}
	for i := range h.Rooms {
		h.Rooms[i].Occupants = slices.DeleteFunc(h.Rooms[i].Occupants, func(id string) bool { return id == in.StudentID })
	}
	if err := s.repo.Update(ctx, hostelID, docstore.Document{"rooms": h.Rooms}); err != nil {
		return nil, err
	}
	if err := s.repo.SetStudentHousing(ctx, in.StudentID, Housing{}); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "hostels:vacate", hostelID, map[string]any{"studentId": in.StudentID})
	return s.repo.Get(ctx, hostelID)
}

func (s *Service) warden(ctx context.Context, in WardenInput) (Warden, error) {
	u, err := s.accounts.Get(ctx, strings.TrimSpace(in.UserID))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return Warden{}, ErrInvalidWarden
		}
		return Warden{}, err
	}
	if u.Role != rbac.RoleWarden || !u.IsActive {
		return Warden{}, ErrInvalidWarden
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		phone = u.Phone
	}
	return Warden{UserID: u.ID, Name: u.Name, Phone: phone}, nil
}

func (s *Service) lock(ctx context.Context, hostelID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	return s.locks.Acquire(ctx, shared.HostelLockKey(hostelID))
}

// lockHousing takes the hostel lock and then the student's housing lock.
// Both are always acquired in that order.
func (s *Service) lockHousing(ctx context.Context, hostelID, studentID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	releaseHostel, err := s.lock(ctx, hostelID)
	if err != nil {
		return nil, err
	}
	releaseStudent, err := s.locks.Acquire(ctx, shared.StudentHousingLockKey(studentID))
	if err != nil {
		releaseHostel()
		return nil, err
	}
	return func() {
		releaseStudent()
		releaseHostel()
	}, nil
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   shared.CollectionHostels,
		EntityID: id,
		Meta:     meta,
	})
}

// mergeRooms builds the new room list, carrying occupants over from existing rooms with
// the same number.
func mergeRooms(existing []Room, in []RoomInput) ([]Room, error) {
	current := make(map[string]Room, len(existing))
	for _, r := range existing {
		current[r.Number] = r
	}
	seen := make(map[string]bool, len(in))
	rooms := make([]Room, 0, len(in))
	for _, ri := range in {
		number := strings.TrimSpace(ri.Number)
		if seen[number] {
			return nil, ErrDuplicateRoom
		}
		seen[number] = true
		occupants := []string{}
		if old, ok := current[number]; ok {
			occupants = old.Occupants
		}
		if len(occupants) > ri.Capacity {
			return nil, ErrRoomOccupied
		}
		rooms = append(rooms, Room{Number: number, Capacity: ri.Capacity, Occupants: occupants})
	}
	for _, r := range existing {
		if !seen[r.Number] && len(r.Occupants) > 0 {
			return nil, ErrRoomOccupied
		}
	}
	return rooms, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
