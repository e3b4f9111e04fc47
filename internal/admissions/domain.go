package admissions

import (
	"time"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
)

// Status is the review state of an application.
type Status string

// Application statuses.
const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// transitions lists the statuses reachable from each state. Approved and rejected are terminal.
var transitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
}

// CanTransition reports whether an application may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Application is a prospective student's admission request.
type Application struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	DateOfBirth    string     `json:"dateOfBirth"`
	Program        string     `json:"program"`
	PreviousSchool string     `json:"previousSchool,omitempty"`
	Percentage     float64    `json:"percentage"`
	Status         Status     `json:"status"`
	Remarks        string     `json:"remarks,omitempty"`
	ReviewedBy     string     `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ApplyInput is the public application form.
type ApplyInput struct {
	Name           string  `json:"name" validate:"required,min=2,max=100"`
	Email          string  `json:"email" validate:"required,email"`
	Phone          string  `json:"phone" validate:"required,min=7,max=20"`
	DateOfBirth    string  `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Program        string  `json:"program" validate:"required,max=100"`
	PreviousSchool string  `json:"previousSchool" validate:"omitempty,max=200"`
	Percentage     float64 `json:"percentage" validate:"gte=0,lte=100"`
}

// StatusInput moves an application through review.
type StatusInput struct {
	Status  string `json:"status" validate:"required,oneof=under_review approved rejected"`
	Remarks string `json:"remarks" validate:"omitempty,max=500"`
}

// Errors returned by the admissions module.
var (
	ErrApplicationNotFound  error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Application not found."}
	ErrDuplicateApplication error = &httpx.Error{Kind: httpx.ErrDuplicate, Msg: "An application for this program is already in progress."}
	ErrInvalidTransition    error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Application status cannot be changed to the requested value."}
)
