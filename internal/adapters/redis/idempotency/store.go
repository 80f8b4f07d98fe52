package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
)

const keyPrefix = "idem:"

// Store is a Redis implementation of idempotency.Store.
// Records expire with the key TTL; ttl <= 0 keeps them forever.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, ttl: idempotency.DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type storedRecord struct {
	StatusCode  int       `json:"status"`
	ContentType string    `json:"contentType"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, err
	}
	var sr storedRecord
	if err := json.Unmarshal(raw, &sr); err != nil {
		return idempotency.Record{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return idempotency.Record{
		StatusCode:  sr.StatusCode,
		ContentType: sr.ContentType,
		Body:        sr.Body,
		CreatedAt:   sr.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	raw, err := json.Marshal(storedRecord{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   createdAt.UTC(),
	})
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, redisKey(fp), raw, ttl).Err()
}

// redisKey hashes the fingerprint so caller-provided keys cannot collide through separators.
func redisKey(fp idempotency.Fingerprint) string {
	h := sha256.New()
	for _, part := range []string{string(fp.Key), string(fp.User), fp.Method, fp.Route, fp.BodyHash} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
