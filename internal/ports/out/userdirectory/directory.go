// Package userdirectory is the outbound port the gateway uses to keep the user
// service in sync with identities seen on inbound requests.
package userdirectory

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks Directory

import (
	"context"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

// RegistrationRecord is the shadow-user registration sent for an identity that is
// unknown to the user service.
type RegistrationRecord struct {
	IdentityID domain.SubjectID
	Email      string
	FirstName  string
	LastName   string
	Credential domain.Credential
}

// Directory answers whether an identity is known and registers new ones.
//
// Implementations must tolerate duplicate registrations for the same identity.
type Directory interface {
	IdentityExists(ctx context.Context, id domain.SubjectID) (bool, error)
	RegisterIdentity(ctx context.Context, rec RegistrationRecord) error
}
