package exams

import (
	"time"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
)

// Status is the lifecycle state of an exam.
type Status string

// Exam statuses.
const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Exam is a scheduled assessment for a course.
type Exam struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	CourseCode           string    `json:"courseCode"`
	Department           string    `json:"department"`
	Semester             int       `json:"semester"`
	Date                 time.Time `json:"date"`
	DurationMinutes      int       `json:"durationMinutes"`
	MaxMarks             float64   `json:"maxMarks"`
	RegistrationDeadline time.Time `json:"registrationDeadline"`
	Status               Status    `json:"status"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Registration links a student to an exam and carries the result once graded.
type Registration struct {
	ID           string    `json:"id"`
	ExamID       string    `json:"examId"`
	StudentID    string    `json:"studentId"`
	Status       string    `json:"status"`
	Marks        *float64  `json:"marks,omitempty"`
	Grade        string    `json:"grade,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Registration statuses.
const (
	RegistrationRegistered = "registered"
	RegistrationGraded     = "graded"
)

// ListFilter narrows exam listings.
type ListFilter struct {
	Department string
	Semester   int
	Status     Status
}

// CreateInput carries the fields for a new exam.
type CreateInput struct {
	Name                 string    `json:"name" validate:"required,min=2,max=100"`
	CourseCode           string    `json:"courseCode" validate:"required,max=20"`
	Department           string    `json:"department" validate:"required,max=100"`
	Semester             int       `json:"semester" validate:"required,gte=1,lte=12"`
	Date                 time.Time `json:"date" validate:"required"`
	DurationMinutes      int       `json:"durationMinutes" validate:"required,gte=15,lte=600"`
	MaxMarks             float64   `json:"maxMarks" validate:"gt=0"`
	RegistrationDeadline time.Time `json:"registrationDeadline" validate:"required"`
}

// UpdateInput carries mutable fields; nil fields are left untouched.
type UpdateInput struct {
	Name                 *string    `json:"name" validate:"omitempty,min=2,max=100"`
	Date                 *time.Time `json:"date"`
	DurationMinutes      *int       `json:"durationMinutes" validate:"omitempty,gte=15,lte=600"`
	MaxMarks             *float64   `json:"maxMarks" validate:"omitempty,gt=0"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	Status               *string    `json:"status" validate:"omitempty,oneof=scheduled ongoing completed cancelled"`
}

// RegisterInput names the student to register. The id is read by the ownership check too.
type RegisterInput struct {
	StudentID string `json:"studentId" validate:"required"`
}

// ResultInput records marks for a registration.
type ResultInput struct {
	Marks *float64 `json:"marks" validate:"required,gte=0"`
}

// Errors returned by the exams module.
var (
	ErrExamNotFound         error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Exam not found."}
	ErrRegistrationNotFound error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Registration not found."}
	ErrStudentNotFound      error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Student not found."}
	ErrDeadlinePassed       error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Registration deadline has passed."}
	ErrExamClosed           error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Exam is not open for registration."}
	ErrAlreadyRegistered    error = &httpx.Error{Kind: httpx.ErrDuplicate, Msg: "Student is already registered for this exam."}
	ErrDeadlineAfterExam    error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Registration deadline must not be after the exam date."}
	ErrMarksExceedMax       error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Marks exceed the maximum for this exam."}
)

type gradeBand struct {
	min   float64
	grade string
}

// grade bands by percentage, highest first
var gradeBands = []gradeBand{
	{90, "O"},
	{80, "A+"},
	{70, "A"},
	{60, "B+"},
	{50, "B"},
	{40, "C"},
	{0, "F"},
}

// GradeFor derives the letter grade for marks out of maxMarks.
func GradeFor(marks, maxMarks float64) string {
	if maxMarks <= 0 {
		return "F"
	}
	pct := marks / maxMarks * 100
	for _, b := range gradeBands {
		if pct >= b.min {
			return b.grade
		}
	}
	return "F"
}
