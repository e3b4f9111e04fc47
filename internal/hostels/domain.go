package hostels

import (
	"time"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
)

// Warden is the staff member assigned to run a hostel. UserID is the ownership link used
// by the authorization checks.
type Warden struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Room is one room with the student ids housed in it.
type Room struct {
	Number    string   `json:"number"`
	Capacity  int      `json:"capacity"`
	Occupants []string `json:"occupants"`
}

// Available is the number of free beds.
func (r Room) Available() int {
	return r.Capacity - len(r.Occupants)
}

// Hostel is a residence with rooms.
type Hostel struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Address    string    `json:"address,omitempty"`
	Warden     Warden    `json:"warden"`
	Rooms      []Room    `json:"rooms"`
	Facilities []string  `json:"facilities"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Occupancy returns total capacity and occupied beds.
func (h Hostel) Occupancy() (capacity, occupied int) {
	for _, r := range h.Rooms {
		capacity += r.Capacity
		occupied += len(r.Occupants)
	}
	return capacity, occupied
}

func (h Hostel) room(number string) int {
	for i, r := range h.Rooms {
		if r.Number == number {
			return i
		}
	}
	return -1
}

// RoomInput declares a room and its capacity.
type RoomInput struct {
	Number   string `json:"number" validate:"required,max=20"`
	Capacity int    `json:"capacity" validate:"gte=1,lte=12"`
}

// WardenInput assigns a warden account.
type WardenInput struct {
	UserID string `json:"userId" validate:"required"`
	Phone  string `json:"phone" validate:"omitempty,max=20"`
}

// CreateInput carries the fields for a new hostel.
type CreateInput struct {
	Name       string       `json:"name" validate:"required,min=2,max=100"`
	Type       string       `json:"type" validate:"required,oneof=boys girls mixed"`
	Address    string       `json:"address" validate:"omitempty,max=300"`
	Warden     *WardenInput `json:"warden" validate:"omitempty"`
	Rooms      []RoomInput  `json:"rooms" validate:"omitempty,dive"`
	Facilities []string     `json:"facilities" validate:"omitempty,dive,max=50"`
}

// UpdateInput carries mutable fields; nil fields are left untouched. Rooms replaces the
// room list while keeping the occupants of rooms that remain.
type UpdateInput struct {
	Name       *string      `json:"name" validate:"omitempty,min=2,max=100"`
	Address    *string      `json:"address" validate:"omitempty,max=300"`
	Warden     *WardenInput `json:"warden" validate:"omitempty"`
	Rooms      []RoomInput  `json:"rooms" validate:"omitempty,dive"`
	Facilities []string     `json:"facilities" validate:"omitempty,dive,max=50"`
}

// AllocationInput places a student in a room.
type AllocationInput struct {
	StudentID  string `json:"studentId" validate:"required"`
	RoomNumber string `json:"roomNumber" validate:"required"`
}

// VacateInput removes a student from the hostel.
type VacateInput struct {
	StudentID string `json:"studentId" validate:"required"`
}

// Errors returned by the hostels module.
var (
	ErrHostelNotFound  error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Hostel not found."}
	ErrStudentNotFound error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Student not found."}
	ErrRoomNotFound    error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Room not found."}
	ErrRoomFull        error = &httpx.Error{Kind: httpx.ErrConflict, Msg: "Room is full."}
	ErrAlreadyHoused   error = &httpx.Error{Kind: httpx.ErrConflict, Msg: "Student is already allocated to a hostel."}
	ErrNotHoused       error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Student is not allocated to this hostel."}
	ErrInvalidWarden   error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Warden must be an active user with the warden role."}
	ErrWardenReassign  error = &httpx.Error{Kind: httpx.ErrForbidden, Msg: "Only an administrator can reassign the warden."}
	ErrHostelOccupied  error = &httpx.Error{Kind: httpx.ErrConflict, Msg: "Hostel still has allocated students."}
	ErrRoomOccupied    error = &httpx.Error{Kind: httpx.ErrConflict, Msg: "Rooms with occupants cannot be removed or shrunk below occupancy."}
	ErrDuplicateRoom   error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Room numbers must be unique."}
)
