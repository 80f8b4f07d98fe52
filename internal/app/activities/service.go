package activities

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/platform/metrics"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/activityevents"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/activityrepo"
	clockport "github.com/fitness-tracker/fitness-platform/internal/ports/out/clock"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/userdirectory"
)

type Service struct {
	repo   activityrepo.Repository
	events activityevents.Publisher
	clk    clockport.Clock
	log    *slog.Logger

	newActivityID func() domain.ActivityID

	// Users, when set, rejects activities for identities unknown to the user service.
	Users userdirectory.Directory
	// Metrics is optional.
	Metrics *metrics.Activities
}

func NewService(repo activityrepo.Repository, events activityevents.Publisher, clk clockport.Clock, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:   repo,
		events: events,
		clk:    clk,
		log:    log,
		newActivityID: func() domain.ActivityID {
			return domain.ActivityID(uuid.NewString())
		},
	}
}

// TrackActivity validates and stores an activity for user, then publishes an
// activity.tracked event. Publishing is best-effort: a failure is logged and the
// stored activity is still returned.
func (s *Service) TrackActivity(ctx context.Context, user domain.SubjectID, in TrackActivityInput) (domain.Activity, error) {
	if strings.TrimSpace(string(user)) == "" {
		return domain.Activity{}, validationError("userId", "must be non-empty")
	}
	if err := validateTrackInput(in); err != nil {
		return domain.Activity{}, err
	}

	if s.Users != nil {
		ok, err := s.Users.IdentityExists(ctx, user)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return domain.Activity{}, err
			}
			s.log.WarnContext(ctx, "user validation failed", "user_id", string(user), "error", err)
			return domain.Activity{}, &Error{
				Status:  503,
				Code:    "USER_SERVICE_UNAVAILABLE",
				Message: "unable to validate user",
			}
		}
		if !ok {
			return domain.Activity{}, &Error{
				Status:  422,
				Code:    "UNKNOWN_USER",
				Message: "user does not exist",
				Details: map[string]any{"userId": string(user)},
			}
		}
	}

	now := s.clk.Now()
	a := activityrepo.Activity{
		ID:                s.newActivityID(),
		UserID:            user,
		Type:              in.Type,
		Duration:          in.Duration,
		CaloriesBurned:    in.CaloriesBurned,
		StartTime:         in.StartTime.UTC(),
		AdditionalMetrics: maps.Clone(in.AdditionalMetrics),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return domain.Activity{}, err
	}
	s.Metrics.IncTracked(string(a.Type))

	ev := activityevents.Event{
		Type:       activityevents.TypeActivityTracked,
		ActivityID: a.ID,
		UserID:     a.UserID,
		Activity:   a.Type,
		Duration:   a.Duration,
		Calories:   a.CaloriesBurned,
		StartTime:  a.StartTime,
		Metrics:    a.AdditionalMetrics,
		OccurredAt: now,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish activity event failed",
			"activity_id", string(a.ID),
			"user_id", string(a.UserID),
			"error", err,
		)
	}
	return toDomain(a), nil
}

// ListUserActivities returns the user's activities, newest start time first.
func (s *Service) ListUserActivities(ctx context.Context, user domain.SubjectID) ([]domain.Activity, error) {
	as, err := s.repo.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(as))
	for _, a := range as {
		out = append(out, toDomain(a))
	}
	return out, nil
}

// GetActivity hides activities owned by other users behind the same 404 as missing ones.
func (s *Service) GetActivity(ctx context.Context, user domain.SubjectID, id domain.ActivityID) (domain.Activity, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, activityrepo.ErrNotFound) {
			return domain.Activity{}, errNotFound()
		}
		return domain.Activity{}, err
	}
	if a.UserID != user {
		return domain.Activity{}, errNotFound()
	}
	return toDomain(a), nil
}

func validateTrackInput(in TrackActivityInput) error {
	if !in.Type.Valid() {
		return validationError("type", "must be a known activity type")
	}
	if in.Duration <= 0 {
		return validationError("duration", "must be greater than zero")
	}
	if in.CaloriesBurned < 0 {
		return validationError("caloriesBurned", "must not be negative")
	}
	if in.StartTime.IsZero() {
		return validationError("startTime", "is required")
	}
	return nil
}

func toDomain(a activityrepo.Activity) domain.Activity {
	return domain.Activity{
		ID:                a.ID,
		UserID:            a.UserID,
		Type:              a.Type,
		Duration:          a.Duration,
		CaloriesBurned:    a.CaloriesBurned,
		StartTime:         a.StartTime,
		AdditionalMetrics: maps.Clone(a.AdditionalMetrics),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
