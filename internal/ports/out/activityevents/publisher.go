package activityevents

import (
	"context"
	"time"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

// TypeActivityTracked is the event type emitted after an activity is persisted.
const TypeActivityTracked = "activity.tracked"

// Event is the message published for downstream consumers (recommendations).
type Event struct {
	Type       string              `json:"type"`
	ActivityID domain.ActivityID   `json:"activityId"`
	UserID     domain.SubjectID    `json:"userId"`
	Activity   domain.ActivityType `json:"activityType"`
	Duration   int                 `json:"duration"`
	Calories   int                 `json:"caloriesBurned"`
	StartTime  time.Time           `json:"startTime"`
	Metrics    map[string]any      `json:"additionalMetrics,omitempty"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// Publisher emits activity events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
