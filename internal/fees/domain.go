package fees

import (
	"math"
	"time"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
)

// Status tracks how much of a fee has been settled.
type Status string

// Fee statuses. Overdue is set only by the overdue scan.
const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Fee is a charge raised against one student.
type Fee struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"studentId"`
	Type         string    `json:"type"`
	Description  string    `json:"description,omitempty"`
	Amount       float64   `json:"amount"`
	AmountPaid   float64   `json:"amountPaid"`
	DueDate      time.Time `json:"dueDate"`
	Status       Status    `json:"status"`
	AcademicYear string    `json:"academicYear,omitempty"`
	Payments     []Payment `json:"payments"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Outstanding is the unpaid balance.
func (f Fee) Outstanding() float64 {
	return roundMoney(f.Amount - f.AmountPaid)
}

// Payment is one settlement applied to a fee.
type Payment struct {
	ID         string    `json:"id"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference,omitempty"`
	PaidAt     time.Time `json:"paidAt"`
	RecordedBy string    `json:"recordedBy"`
}

// Summary aggregates the fees of one student.
type Summary struct {
	StudentID   string         `json:"studentId"`
	TotalAmount float64        `json:"totalAmount"`
	TotalPaid   float64        `json:"totalPaid"`
	Outstanding float64        `json:"outstanding"`
	ByStatus    map[Status]int `json:"byStatus"`
}

// ListFilter narrows fee listings.
type ListFilter struct {
	StudentID string
	Status    Status
}

// CreateInput carries the fields for a new fee.
type CreateInput struct {
	StudentID    string  `json:"studentId" validate:"required"`
	Type         string  `json:"type" validate:"required,oneof=tuition hostel exam library transport other"`
	Description  string  `json:"description" validate:"omitempty,max=200"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	DueDate      string  `json:"dueDate" validate:"required,datetime=2006-01-02"`
	AcademicYear string  `json:"academicYear" validate:"omitempty,max=20"`
}

// PaymentInput carries a payment against a fee.
type PaymentInput struct {
	Amount    float64 `json:"amount" validate:"gt=0"`
	Method    string  `json:"method" validate:"required,oneof=cash card upi bank_transfer cheque"`
	Reference string  `json:"reference" validate:"omitempty,max=100"`
}

// Errors returned by the fees module.
var (
	ErrFeeNotFound     error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "Fee not found."}
	ErrStudentNotFound error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Student not found."}
	ErrAlreadyPaid     error = &httpx.Error{Kind: httpx.ErrConflict, Msg: "Fee is already paid."}
	ErrOverpayment     error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Payment exceeds the outstanding balance."}
	ErrInvalidAmount   error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Payment amount must be positive."}
)

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// statusAfterPayment returns the status once paid of amount has been settled.
func statusAfterPayment(amount, paid float64) Status {
	switch {
	case roundMoney(amount-paid) <= 0:
		return StatusPaid
	case paid > 0:
		return StatusPartial
	}
	return StatusPending
}
