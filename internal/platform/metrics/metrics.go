package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UserSync counts gateway user-sync outcomes by label.
type UserSync struct {
	outcomes *prometheus.CounterVec
}

// NewUserSync registers the user-sync counters on reg.
func NewUserSync(reg prometheus.Registerer) *UserSync {
	return &UserSync{
		outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "usersync_outcomes_total",
			Help: "Gateway user-sync outcomes per request",
		}, []string{"outcome"}),
	}
}

// IncOutcome is safe on a nil receiver.
func (m *UserSync) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// Users counts registrations by credential kind.
type Users struct {
	registered *prometheus.CounterVec
}

func NewUsers(reg prometheus.Registerer) *Users {
	return &Users{
		registered: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of users registered, by credential kind",
		}, []string{"credential"}),
	}
}

func (m *Users) IncRegistered(credential string) {
	if m == nil {
		return
	}
	m.registered.WithLabelValues(credential).Inc()
}

// Activities counts tracked activities by type.
type Activities struct {
	tracked *prometheus.CounterVec
}

func NewActivities(reg prometheus.Registerer) *Activities {
	return &Activities{
		tracked: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "activities_tracked_total",
			Help: "Total number of activities tracked, by activity type",
		}, []string{"type"}),
	}
}

func (m *Activities) IncTracked(activityType string) {
	if m == nil {
		return
	}
	m.tracked.WithLabelValues(activityType).Inc()
}
