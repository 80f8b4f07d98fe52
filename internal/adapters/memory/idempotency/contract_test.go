package idempotency

import (
	"testing"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/contracttest"
	idempotencyport "github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
)

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
