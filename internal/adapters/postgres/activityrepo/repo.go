package activityrepo

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
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/activityrepo"
)

const selectActivity = `
	SELECT
		external_id,
		user_subject,
		activity_type,
		duration_minutes,
		calories_burned,
		start_time,
		additional_metrics,
		created_at,
		updated_at
	FROM activities
`

// Repo is a Postgres implementation of activityrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, a activityrepo.Activity) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(a.ID))
	if err != nil {
		return fmt.Errorf("invalid activity id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO activities (
			external_id,
			user_subject,
			activity_type,
			duration_minutes,
			calories_burned,
			start_time,
			additional_metrics,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		id,
		string(a.UserID),
		string(a.Type),
		a.Duration,
		a.CaloriesBurned,
		a.StartTime.UTC(),
		a.AdditionalMetrics,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return activityrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ActivityID) (activityrepo.Activity, error) {
	if r.pool == nil {
		return activityrepo.Activity{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return activityrepo.Activity{}, activityrepo.ErrNotFound
	}
	return scanActivity(r.pool.QueryRow(ctx, selectActivity+` WHERE external_id = $1`, uid))
}

func (r *Repo) ListByUser(ctx context.Context, user domain.SubjectID) ([]activityrepo.Activity, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, selectActivity+`
		WHERE user_subject = $1
		ORDER BY start_time DESC, external_id ASC
	`, string(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]activityrepo.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanActivity(row pgx.Row) (activityrepo.Activity, error) {
	var (
		externalID uuid.UUID
		user       string
		typ        string
		duration   int
		calories   int
		startTime  time.Time
		metrics    map[string]any
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(
		&externalID,
		&user,
		&typ,
		&duration,
		&calories,
		&startTime,
		&metrics,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return activityrepo.Activity{}, activityrepo.ErrNotFound
		}
		return activityrepo.Activity{}, err
	}
	return activityrepo.Activity{
		ID:                domain.ActivityID(externalID.String()),
		UserID:            domain.SubjectID(user),
		Type:              domain.ActivityType(typ),
		Duration:          duration,
		CaloriesBurned:    calories,
		StartTime:         startTime.UTC(),
		AdditionalMetrics: metrics,
		CreatedAt:         createdAt.UTC(),
		UpdatedAt:         updatedAt.UTC(),
	}, nil
}
