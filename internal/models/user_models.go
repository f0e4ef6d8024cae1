package models

import "time"

// Role is the closed set of capabilities a principal can hold.
type Role string

const (
	RoleUser    Role = "USER"
	RoleKitchen Role = "KITCHEN"
	RoleAdmin   Role = "ADMIN"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleKitchen, RoleAdmin:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"` // '-' means never serialized
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Credentials for login requests.
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegistrationPayload for user registration.
type RegistrationPayload struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}
