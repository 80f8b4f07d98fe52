package userrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres"
	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

const selectUser = `
	SELECT
		external_id,
		subject,
		email,
		first_name,
		last_name,
		role,
		credential_kind,
		credential_hash,
		created_at,
		updated_at
	FROM users
`

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (
			external_id,
			subject,
			email,
			first_name,
			last_name,
			role,
			credential_kind,
			credential_hash,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		id,
		string(u.Subject),
		domain.NormalizeEmail(u.Email),
		u.FirstName,
		u.LastName,
		string(u.Role),
		string(u.CredentialKind),
		nullableHash(u.CredentialHash),
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	return mapUniqueViolation(err)
}

func (r *Repo) Update(ctx context.Context, u userrepo.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return userrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := scanUser(tx.QueryRow(ctx, selectUser+` WHERE external_id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		// Subject binding is immutable.
		if existing.Subject != u.Subject {
			return userrepo.ErrSubjectAlreadyBound
		}

		ct, err := tx.Exec(ctx, `
			UPDATE users
			SET email = $2,
			    first_name = $3,
			    last_name = $4,
			    role = $5,
			    credential_kind = $6,
			    credential_hash = $7,
			    updated_at = $8
			WHERE external_id = $1
		`,
			id,
			domain.NormalizeEmail(u.Email),
			u.FirstName,
			u.LastName,
			string(u.Role),
			string(u.CredentialKind),
			nullableHash(u.CredentialHash),
			u.UpdatedAt.UTC(),
		)
		if err != nil {
			return mapUniqueViolation(err)
		}
		if ct.RowsAffected() == 0 {
			return userrepo.ErrNotFound
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE external_id = $1`, uid))
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE subject = $1`, string(subject)))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE email = $1`, domain.NormalizeEmail(email)))
}

func (r *Repo) ExistsBySubject(ctx context.Context, subject domain.SubjectID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE subject = $1)`, string(subject)).Scan(&exists)
	return exists, err
}

// --- helpers ---

func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	pe, ok := postgres.AsPgError(err)
	if !ok || pe.Code != postgres.UniqueViolationCode {
		return err
	}
	switch pe.ConstraintName {
	case "users_subject_unique":
		return userrepo.ErrSubjectAlreadyBound
	case "users_email_unique":
		return userrepo.ErrEmailAlreadyInUse
	case "users_external_id_unique":
		return userrepo.ErrAlreadyExists
	default:
		return err
	}
}

func nullableHash(h string) *string {
	if h == "" {
		return nil
	}
	return &h
}

func scanUser(row pgx.Row) (userrepo.User, error) {
	var (
		externalID     uuid.UUID
		subject        string
		email          string
		firstName      string
		lastName       string
		role           string
		credentialKind string
		credentialHash *string
		createdAt      time.Time
		updatedAt      time.Time
	)
	if err := row.Scan(
		&externalID,
		&subject,
		&email,
		&firstName,
		&lastName,
		&role,
		&credentialKind,
		&credentialHash,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	u := userrepo.User{
		ID:             domain.UserID(externalID.String()),
		Subject:        domain.SubjectID(subject),
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		Role:           domain.UserRole(role),
		CredentialKind: domain.CredentialKind(credentialKind),
		CreatedAt:      createdAt.UTC(),
		UpdatedAt:      updatedAt.UTC(),
	}
	if credentialHash != nil {
		u.CredentialHash = *credentialHash
	}
	return u, nil
}
