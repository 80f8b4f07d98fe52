package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/platform/metrics"
	clockport "github.com/fitness-tracker/fitness-platform/internal/ports/out/clock"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

type Service struct {
	repo userrepo.Repository
	clk  clockport.Clock

	newUserID func() domain.UserID

	// Metrics is optional.
	Metrics *metrics.Users
}

func NewService(repo userrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
	}
}

// Register creates the user bound to in.Subject. Registering an already bound
// subject returns the existing user unchanged, so repeated first-sight syncs from
// the gateway are harmless.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	subject := domain.SubjectID(strings.TrimSpace(string(in.Subject)))
	if subject == "" {
		return domain.User{}, validationError("identityId", "must be non-empty")
	}

	if existing, err := s.repo.GetBySubject(ctx, subject); err == nil {
		return toDomain(existing), nil
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return domain.User{}, err
	}

	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.User{}, validationError("email", err.Error())
	}
	email = domain.NormalizeEmail(email)

	cred, err := credentialFor(in)
	if err != nil {
		return domain.User{}, err
	}

	if other, err := s.repo.GetByEmail(ctx, email); err == nil {
		if other.Subject == subject {
			return toDomain(other), nil
		}
		return domain.User{}, errEmailInUse()
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return domain.User{}, err
	}

	now := s.clk.Now()
	u := userrepo.User{
		ID:             s.newUserID(),
		Subject:        subject,
		Email:          email,
		FirstName:      domain.NormalizeHumanName(in.FirstName),
		LastName:       domain.NormalizeHumanName(in.LastName),
		Role:           domain.RoleUser,
		CredentialKind: cred.Kind,
		CredentialHash: cred.Hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if !errors.Is(err, userrepo.ErrSubjectAlreadyBound) && !errors.Is(err, userrepo.ErrEmailAlreadyInUse) {
			return domain.User{}, err
		}
		// Lost a race; a concurrent registration for the same subject wins.
		existing, gerr := s.repo.GetBySubject(ctx, subject)
		if gerr == nil {
			return toDomain(existing), nil
		}
		if errors.Is(err, userrepo.ErrEmailAlreadyInUse) && errors.Is(gerr, userrepo.ErrNotFound) {
			return domain.User{}, errEmailInUse()
		}
		return domain.User{}, gerr
	}
	s.Metrics.IncRegistered(string(cred.Kind))
	return toDomain(u), nil
}

// ValidateSubject reports whether a user is bound to subject.
func (s *Service) ValidateSubject(ctx context.Context, subject domain.SubjectID) (bool, error) {
	if strings.TrimSpace(string(subject)) == "" {
		return false, nil
	}
	return s.repo.ExistsBySubject(ctx, subject)
}

func (s *Service) GetProfile(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{
				Status:  404,
				Code:    "USER_NOT_FOUND",
				Message: "user not found",
			}
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

func (s *Service) GetMyProfile(ctx context.Context, subject domain.SubjectID) (domain.User, error) {
	u, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, errNotProvisioned()
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

func (s *Service) UpdateMyProfile(ctx context.Context, subject domain.SubjectID, in UpdateMyProfileInput) (domain.User, error) {
	u, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, errNotProvisioned()
		}
		return domain.User{}, err
	}

	if in.FirstName.IsSpecified() {
		u.FirstName = ""
		if !in.FirstName.IsNull() {
			u.FirstName = domain.NormalizeHumanName(in.FirstName.Value())
		}
	}
	if in.LastName.IsSpecified() {
		u.LastName = ""
		if !in.LastName.IsNull() {
			u.LastName = domain.NormalizeHumanName(in.LastName.Value())
		}
	}

	if in.Email.IsSpecified() {
		if in.Email.IsNull() {
			return domain.User{}, validationError("email", "cannot be null")
		}
		email := strings.TrimSpace(in.Email.Value())
		if err := validateEmail(email); err != nil {
			return domain.User{}, validationError("email", err.Error())
		}
		email = domain.NormalizeEmail(email)
		if other, err := s.repo.GetByEmail(ctx, email); err == nil && other.ID != u.ID {
			return domain.User{}, errEmailInUse()
		} else if err != nil && !errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, err
		}
		u.Email = email
	}

	u.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailAlreadyInUse) {
			return domain.User{}, errEmailInUse()
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

func credentialFor(in RegisterInput) (domain.Credential, error) {
	if in.External {
		if in.Password != "" {
			return domain.Credential{}, validationError("password", "must be omitted for externally managed credentials")
		}
		return domain.ExternalCredential(), nil
	}
	if in.Password == "" {
		return domain.Credential{}, validationError("password", "must be non-empty")
	}
	cred, err := domain.NewPasswordCredential(in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrPasswordTooShort) {
			return domain.Credential{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid password",
				Details: map[string]any{"password": "must be at least 8 characters", "minLength": domain.MinPasswordLength},
			}
		}
		return domain.Credential{}, err
	}
	return cred, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:        u.ID,
		Subject:   u.Subject,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Credential: domain.Credential{
			Kind: u.CredentialKind,
			Hash: u.CredentialHash,
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
