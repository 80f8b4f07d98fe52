package idempotency

import (
	"context"
	"time"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request for replay purposes: key + user + route + body hash.
// Route is the HTTP method plus the route template, e.g. "POST /api/activities".
type Fingerprint struct {
	Key      Key
	User     domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response replayed for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// DefaultTTL bounds how long records are kept by stores that expire entries.
const DefaultTTL = 24 * time.Hour

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
