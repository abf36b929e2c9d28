package dto

import (
	"time"

	"github.com/municipal-it/helpdesk/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload for POST /auth/password/change.
type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token             string       `json:"token"`
	ExpiresAt         time.Time    `json:"expires_at"`
	MustResetPassword bool         `json:"must_reset_password"`
	User              UserResponse `json:"user"`
}

// UserRequest payload for creating or editing an account.
type UserRequest struct {
	Email             string `json:"email"`
	Municipality      string `json:"municipality"`
	DisplayName       string `json:"display_name"`
	Phone             string `json:"phone"`
	IsAdmin           bool   `json:"is_admin"`
	MustResetPassword *bool  `json:"must_reset_password"`
}

// UserResponse represents an account without its credentials.
type UserResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Municipality      string    `json:"municipality"`
	DisplayName       string    `json:"display_name"`
	Phone             string    `json:"phone,omitempty"`
	IsAdmin           bool      `json:"is_admin"`
	MustResetPassword bool      `json:"must_reset_password"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		Municipality:      u.Municipality,
		DisplayName:       u.DisplayName,
		Phone:             u.Phone,
		IsAdmin:           u.IsAdmin,
		MustResetPassword: u.MustResetPassword,
		CreatedAt:         u.CreatedAt,
	}
}
