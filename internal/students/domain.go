package students

import (
	"time"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
)

// Status is the enrolment state of a student.
type Status string

// Student statuses.
const (
	StatusActive    Status = "active"
	StatusGraduated Status = "graduated"
	StatusSuspended Status = "suspended"
	StatusWithdrawn Status = "withdrawn"
)

// Student is the academic record linked to a student-role account through UserID.
type Student struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	RollNumber    string    `json:"rollNumber"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Department    string    `json:"department"`
	Program       string    `json:"program"`
	Year          int       `json:"year"`
	Semester      int       `json:"semester"`
	Status        Status    `json:"status"`
	GuardianName  string    `json:"guardianName,omitempty"`
	GuardianPhone string    `json:"guardianPhone,omitempty"`
	Address       string    `json:"address,omitempty"`
	AdmissionDate string    `json:"admissionDate,omitempty"`
	HostelID      string    `json:"hostelId,omitempty"`
	RoomNumber    string    `json:"roomNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ListFilter narrows student listings. Zero values are ignored.
type ListFilter struct {
	Department string
	Year       int
	Status     Status
}

// CreateInput carries the fields for a new student record.
type CreateInput struct {
	UserID        string `json:"userId" validate:"required"`
	RollNumber    string `json:"rollNumber" validate:"required,max=30"`
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	Department    string `json:"department" validate:"required,max=100"`
	Program       string `json:"program" validate:"required,max=100"`
	Year          int    `json:"year" validate:"required,gte=1,lte=6"`
	Semester      int    `json:"semester" validate:"required,gte=1,lte=12"`
	GuardianName  string `json:"guardianName" validate:"omitempty,max=100"`
	GuardianPhone string `json:"guardianPhone" validate:"omitempty,max=20"`
	Address       string `json:"address" validate:"omitempty,max=300"`
	AdmissionDate string `json:"admissionDate" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateInput carries mutable fields; nil fields are left untouched. The owning account
// and roll number are fixed at creation.
type UpdateInput struct {
	Name          *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone" validate:"omitempty,max=20"`
	Department    *string `json:"department" validate:"omitempty,max=100"`
	Program       *string `json:"program" validate:"omitempty,max=100"`
	Year          *int    `json:"year" validate:"omitempty,gte=1,lte=6"`
	Semester      *int    `json:"semester" validate:"omitempty,gte=1,lte=12"`
	Status        *string `json:"status" validate:"omitempty,oneof=active graduated suspended withdrawn"`
	GuardianName  *string `json:"guardianName" validate:"omitempty,max=100"`
	GuardianPhone *string `json:"guardianPhone" validate:"omitempty,max=20"`
	Address       *string `json:"address" validate:"omitempty,max=300"`
}

// Errors returned by the students module.
var (
	ErrStudentNotFound  error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Student not found."}
	ErrProfileNotFound  error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Student profile not found."}
	ErrUserNotStudent   error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "User must exist and have the student role."}
	ErrUserLinked       error = &httpx.Error{Kind: httpx.ErrDuplicate, Msg: "User is already linked to a student record."}
	ErrRollNumberTaken  error = &httpx.Error{Kind: httpx.ErrDuplicate, Msg: "Roll number is already in use."}
	ErrStudentHasHostel error = &httpx.Error{Kind: httpx.ErrConflict, Msg: "Student must vacate their hostel room first."}
)
