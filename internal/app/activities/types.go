package activities

import (
	"time"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

type TrackActivityInput struct {
	Type              domain.ActivityType
	Duration          int // minutes
	CaloriesBurned    int
	StartTime         time.Time
	AdditionalMetrics map[string]any
}
