package idempotency

import (
	"context"
	"sync"
	"time"

	clockport "github.com/fitness-tracker/fitness-platform/internal/ports/out/clock"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// Records older than the TTL are treated as absent and dropped lazily.
// It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	m   map[idempotency.Fingerprint]idempotency.Record
	ttl time.Duration
	clk clockport.Clock
}

func NewStore() *Store {
	return NewStoreWithTTL(idempotency.DefaultTTL, nil)
}

// NewStoreWithTTL builds a store with a custom TTL; ttl <= 0 disables expiry.
func NewStoreWithTTL(ttl time.Duration, clk clockport.Clock) *Store {
	if clk == nil {
		clk = systemClock{}
	}
	return &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		ttl: ttl,
		clk: clk,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	rec, ok := s.m[fp]
	s.mu.RUnlock()
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if s.expired(rec) {
		s.mu.Lock()
		delete(s.m, fp)
		s.mu.Unlock()
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.clk.Now().Sub(rec.CreatedAt) >= s.ttl
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
