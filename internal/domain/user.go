package domain

import "time"

// User is a requester or administrator account.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Municipality      string
	DisplayName       string
	Phone             string
	MustResetPassword bool
	IsAdmin           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Caller returns the identity the engine acts on behalf of.
func (u *User) Caller() Caller {
	return Caller{
		ID:           u.ID,
		Email:        u.Email,
		Municipality: u.Municipality,
		IsAdmin:      u.IsAdmin,
		DisplayName:  u.DisplayName,
	}
}
