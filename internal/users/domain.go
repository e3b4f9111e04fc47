package users

import (
	"time"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
)

// User represents an account as exposed over the API. The password hash is never serialised.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         rbac.Role  `json:"role"`
	IsActive     bool       `json:"isActive"`
	Phone        string     `json:"phone,omitempty"`
	Department   string     `json:"department,omitempty"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// record is the stored shape of a user document.
type record struct {
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	Phone        string     `json:"phone,omitempty"`
	Department   string     `json:"department,omitempty"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ListFilter narrows user listings.
type ListFilter struct {
	Role     rbac.Role
	IsActive *bool
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Role       string `json:"role" validate:"required,oneof=admin staff warden student"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	Department string `json:"department" validate:"omitempty,max=100"`
}

// UpdateInput carries mutable account fields; nil fields are left untouched.
type UpdateInput struct {
	Email      *string `json:"email" validate:"omitempty,email"`
	Name       *string `json:"name" validate:"omitempty,min=2,max=100"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin staff warden student"`
	Phone      *string `json:"phone" validate:"omitempty,max=20"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

// Errors returned by the users module.
var (
	ErrUserNotFound  error = &httpx.Error{Kind: httpx.ErrNotFound, Msg: "User not found."}
	ErrEmailTaken    error = &httpx.Error{Kind: httpx.ErrDuplicate, Msg: "Email is already registered."}
	ErrSelfAction    error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "You cannot deactivate or delete your own account."}
	ErrWrongPassword error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Current password is incorrect."}
	ErrInvalidRole   error = &httpx.Error{Kind: httpx.ErrValidation, Msg: "Role must be one of admin, staff, warden, student."}
)
