package domain

import "time"

// UserRole is the coarse authorization role of a user.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// User is the domain representation of a locally stored user.
type User struct {
	ID      UserID
	Subject SubjectID

	Email     string
	FirstName string
	LastName  string
	Role      UserRole

	Credential Credential

	CreatedAt time.Time
	UpdatedAt time.Time
}
