package domain

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// CredentialKind describes how a user authenticates against the local store.
type CredentialKind string

const (
	// CredentialPassword is a locally verifiable bcrypt password hash.
	CredentialPassword CredentialKind = "password"
	// CredentialExternal marks a shadow account whose only credential lives at the
	// identity provider. It never verifies a local password.
	CredentialExternal CredentialKind = "external"
)

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort   = errors.New("password too short")
	ErrCredentialMismatch = errors.New("credential mismatch")
	ErrCredentialExternal = errors.New("credential is managed by the identity provider")
	ErrUnknownCredential  = errors.New("unknown credential kind")
)

// Credential is the stored authentication material of a user.
type Credential struct {
	Kind CredentialKind
	Hash string
}

// ExternalCredential returns the disabled-credential sentinel used for accounts
// auto-registered from identity provider claims.
func ExternalCredential() Credential {
	return Credential{Kind: CredentialExternal}
}

// NewPasswordCredential hashes a plaintext password with bcrypt.
func NewPasswordCredential(password string) (Credential, error) {
	if len(password) < MinPasswordLength {
		return Credential{}, ErrPasswordTooShort
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Kind: CredentialPassword, Hash: string(b)}, nil
}

func (c Credential) IsExternal() bool { return c.Kind == CredentialExternal }

// Verify compares a plaintext password against the credential.
func (c Credential) Verify(password string) error {
	switch c.Kind {
	case CredentialExternal:
		return ErrCredentialExternal
	case CredentialPassword:
		if err := bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(password)); err != nil {
			return ErrCredentialMismatch
		}
		return nil
	default:
		return ErrUnknownCredential
	}
}
