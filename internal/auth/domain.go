package auth

import (
	"time"

	"github.com/odyssey-erp/campus-erp/internal/users"
)

// LoginInput carries credentials submitted to the login endpoint.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput creates a self-service student account.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

// ChangePasswordInput replaces the caller's password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,nefield=CurrentPassword"`
}

// Session is returned after a successful login or registration.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	ExpiresIn int64       `json:"expiresIn"`
	User      *users.User `json:"user"`
}
