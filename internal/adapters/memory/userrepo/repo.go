package userrepo

import (
	"context"
	"sync"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.UserID]userrepo.User
	idBySub   map[domain.SubjectID]domain.UserID
	idByEmail map[string]domain.UserID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.UserID]userrepo.User),
		idBySub:   make(map[domain.SubjectID]domain.UserID),
		idByEmail: make(map[string]domain.UserID),
	}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_ = ctx
	if u.ID == "" {
		return userrepo.ErrAlreadyExists // empty IDs are never valid; callers generate UUIDs
	}
	u.Email = domain.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userrepo.ErrAlreadyExists
	}
	if existingID, ok := r.idBySub[u.Subject]; ok && existingID != "" {
		return userrepo.ErrSubjectAlreadyBound
	}
	if existingID, ok := r.idByEmail[u.Email]; ok && existingID != "" {
		return userrepo.ErrEmailAlreadyInUse
	}

	r.byID[u.ID] = u
	r.idBySub[u.Subject] = u.ID
	r.idByEmail[u.Email] = u.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, u userrepo.User) error {
	_ = ctx
	u.Email = domain.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[u.ID]
	if !ok {
		return userrepo.ErrNotFound
	}
	// Subject binding is immutable.
	if existing.Subject != u.Subject {
		return userrepo.ErrSubjectAlreadyBound
	}
	if ownerID, ok := r.idByEmail[u.Email]; ok && ownerID != u.ID {
		return userrepo.ErrEmailAlreadyInUse
	}

	delete(r.idByEmail, existing.Email)
	r.byID[u.ID] = u
	r.idByEmail[u.Email] = u.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return u, nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(r.idBySub[subject])
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(r.idByEmail[domain.NormalizeEmail(email)])
}

func (r *Repo) ExistsBySubject(ctx context.Context, subject domain.SubjectID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.idBySub[subject]
	return ok, nil
}

func (r *Repo) lookupLocked(id domain.UserID) (userrepo.User, error) {
	if id == "" {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return u, nil
}
