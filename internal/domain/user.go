package domain

import "time"

// Role is the coarse permission level attached to a user. ORGANIZER grants
// the elevated cancellation path for events the user organizes; everything
// else is owner-only.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleOrganizer Role = "ORGANIZER"
)

// User is an account record. The engine trusts the user reference handed to
// it by the session layer; this type exists for the signup/login surface and
// for resolving contact details when publishing confirmations.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
