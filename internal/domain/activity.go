package domain

import "time"

// ActivityType enumerates the supported kinds of tracked activity.
type ActivityType string

const (
	ActivityRunning        ActivityType = "RUNNING"
	ActivityWalking        ActivityType = "WALKING"
	ActivityCycling        ActivityType = "CYCLING"
	ActivitySwimming       ActivityType = "SWIMMING"
	ActivityWeightTraining ActivityType = "WEIGHT_TRAINING"
	ActivityYoga           ActivityType = "YOGA"
	ActivityHIIT           ActivityType = "HIIT"
	ActivityCardio         ActivityType = "CARDIO"
	ActivityStretching     ActivityType = "STRETCHING"
	ActivityOther          ActivityType = "OTHER"
)

var activityTypes = map[ActivityType]struct{}{
	ActivityRunning:        {},
	ActivityWalking:        {},
	ActivityCycling:        {},
	ActivitySwimming:       {},
	ActivityWeightTraining: {},
	ActivityYoga:           {},
	ActivityHIIT:           {},
	ActivityCardio:         {},
	ActivityStretching:     {},
	ActivityOther:          {},
}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	_, ok := activityTypes[t]
	return ok
}

// Activity is a single tracked workout.
type Activity struct {
	ID     ActivityID
	UserID SubjectID

	Type ActivityType
	// Duration is in minutes.
	Duration       int
	CaloriesBurned int
	StartTime      time.Time
	// AdditionalMetrics carries free-form measurements (distance, heart rate, ...).
	AdditionalMetrics map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}
