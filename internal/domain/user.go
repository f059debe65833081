package domain

import "time"

// Role distinguishes administrators from regular users.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the domain model for people who open and manage tickets.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	PhoneE164    string
	CreatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
