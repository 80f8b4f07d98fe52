package activityrepo

import (
	"context"
	"time"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

// Activity is the persistence shape used by the activity repository.
type Activity struct {
	ID                domain.ActivityID
	UserID            domain.SubjectID
	Type              domain.ActivityType
	Duration          int
	CaloriesBurned    int
	StartTime         time.Time
	AdditionalMetrics map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted activities.
//
// ListByUser returns activities ordered by StartTime descending, ties broken by ID.
type Repository interface {
	Create(ctx context.Context, a Activity) error
	GetByID(ctx context.Context, id domain.ActivityID) (Activity, error)
	ListByUser(ctx context.Context, user domain.SubjectID) ([]Activity, error)
}
