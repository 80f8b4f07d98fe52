package idempotency

import (
	"context"
	"testing"
	"time"

	memclock "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/clock"
	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
)

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		User:     domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/api/activities",
		BodyHash: "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != rec.StatusCode || got.ContentType != rec.ContentType || string(got.Body) != string(rec.Body) {
		t.Fatalf("Get()=%+v, want %+v", got, rec)
	}
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	s := NewStoreWithTTL(time.Minute, clk)
	fp := idempotency.Fingerprint{Key: "k1", User: "sub-1", Method: "POST", Route: "/api/activities"}

	if err := s.Put(context.Background(), fp, idempotency.Record{StatusCode: 201}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	if _, ok, _ := s.Get(context.Background(), fp); !ok {
		t.Fatalf("expected record before TTL")
	}

	clk.Advance(time.Minute)
	if _, ok, _ := s.Get(context.Background(), fp); ok {
		t.Fatalf("expected record to expire after TTL")
	}
}
