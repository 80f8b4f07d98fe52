package userrepo

import (
	"testing"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/contracttest"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/testutil"
	userrepoport "github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

func TestContract_PostgresUserRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
