package userrepo

import (
	"context"
	"time"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

// User is the persistence shape used by the user repository.
type User struct {
	ID      domain.UserID
	Subject domain.SubjectID
	// Email is stored normalized (lowercase); uniqueness is enforced by the repository.
	Email     string
	FirstName string
	LastName  string
	Role      domain.UserRole

	CredentialKind domain.CredentialKind
	// CredentialHash is empty for external credentials.
	CredentialHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted users.
//
// Create must reject a second user for the same subject with ErrSubjectAlreadyBound
// so concurrent first-sight registrations resolve to a single record.
type Repository interface {
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error

	GetByID(ctx context.Context, id domain.UserID) (User, error)
	GetBySubject(ctx context.Context, subject domain.SubjectID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	ExistsBySubject(ctx context.Context, subject domain.SubjectID) (bool, error)
}
