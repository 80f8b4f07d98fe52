package activityrepo

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/activityrepo"
)

// Repo is an in-memory implementation of activityrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID   map[domain.ActivityID]activityrepo.Activity
	byUser map[domain.SubjectID][]domain.ActivityID
}

func NewRepo() *Repo {
	return &Repo{
		byID:   make(map[domain.ActivityID]activityrepo.Activity),
		byUser: make(map[domain.SubjectID][]domain.ActivityID),
	}
}

func (r *Repo) Create(ctx context.Context, a activityrepo.Activity) error {
	_ = ctx
	if a.ID == "" {
		return activityrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; ok {
		return activityrepo.ErrAlreadyExists
	}
	r.byID[a.ID] = cloneActivity(a)
	r.byUser[a.UserID] = append(r.byUser[a.UserID], a.ID)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ActivityID) (activityrepo.Activity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return activityrepo.Activity{}, activityrepo.ErrNotFound
	}
	return cloneActivity(a), nil
}

func (r *Repo) ListByUser(ctx context.Context, user domain.SubjectID) ([]activityrepo.Activity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[user]
	out := make([]activityrepo.Activity, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneActivity(r.byID[id]))
	}
	sortNewestFirst(out)
	return out, nil
}

func cloneActivity(a activityrepo.Activity) activityrepo.Activity {
	out := a
	if a.AdditionalMetrics != nil {
		out.AdditionalMetrics = maps.Clone(a.AdditionalMetrics)
	}
	return out
}

func sortNewestFirst(as []activityrepo.Activity) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].StartTime.Equal(as[j].StartTime) {
			return string(as[i].ID) < string(as[j].ID)
		}
		return as[i].StartTime.After(as[j].StartTime)
	})
}
