package contracttest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
	activityrepoport "github.com/fitness-tracker/fitness-platform/internal/ports/out/activityrepo"
	idempotencyport "github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
	userrepoport "github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type ActivityRepoFactory func(t *testing.T) (activityrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		User:     domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/api/activities",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Fingerprints are isolated per user.
	other := fp
	other.User = domain.SubjectID("sub-2")
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected no record for other user, ok=%v err=%v", ok, err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.UserID(uuid.NewString())
	sub := domain.SubjectID("sub-" + uuid.NewString())
	email := "alice-" + uuid.NewString() + "@example.com"
	if err := repo.Create(ctx, userrepoport.User{
		ID:             aID,
		Subject:        sub,
		Email:          email,
		FirstName:      "Alice",
		LastName:       "Johnson",
		Role:           domain.RoleUser,
		CredentialKind: domain.CredentialExternal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if _, err := repo.GetByID(ctx, aID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got, err := repo.GetBySubject(ctx, sub)
	if err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if got.ID != aID || got.CredentialKind != domain.CredentialExternal || got.CredentialHash != "" {
		t.Fatalf("unexpected user: %#v", got)
	}
	if _, err := repo.GetByEmail(ctx, "  "+strings.ToUpper(email)); err != nil {
		t.Fatalf("GetByEmail (case-insensitive): %v", err)
	}

	exists, err := repo.ExistsBySubject(ctx, sub)
	if err != nil || !exists {
		t.Fatalf("ExistsBySubject(known)=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsBySubject(ctx, domain.SubjectID("sub-unknown-"+uuid.NewString()))
	if err != nil || exists {
		t.Fatalf("ExistsBySubject(unknown)=%v err=%v", exists, err)
	}

	if _, err := repo.GetBySubject(ctx, domain.SubjectID("sub-missing-"+uuid.NewString())); err != userrepoport.ErrNotFound {
		t.Fatalf("GetBySubject(missing) err=%v, want ErrNotFound", err)
	}

	// Subject uniqueness.
	if err := repo.Create(ctx, userrepoport.User{
		ID:             domain.UserID(uuid.NewString()),
		Subject:        sub,
		Email:          "other-" + uuid.NewString() + "@example.com",
		Role:           domain.RoleUser,
		CredentialKind: domain.CredentialExternal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != userrepoport.ErrSubjectAlreadyBound {
		t.Fatalf("expected ErrSubjectAlreadyBound, got %v", err)
	}

	// Email uniqueness.
	if err := repo.Create(ctx, userrepoport.User{
		ID:             domain.UserID(uuid.NewString()),
		Subject:        domain.SubjectID("sub-" + uuid.NewString()),
		Email:          email,
		Role:           domain.RoleUser,
		CredentialKind: domain.CredentialExternal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != userrepoport.ErrEmailAlreadyInUse {
		t.Fatalf("expected ErrEmailAlreadyInUse, got %v", err)
	}

	// Update keeps the subject binding and moves the email index.
	newEmail := "alice.j-" + uuid.NewString() + "@example.com"
	got.Email = newEmail
	got.FirstName = "Alicia"
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := repo.GetByEmail(ctx, newEmail); err != nil {
		t.Fatalf("GetByEmail(new): %v", err)
	}
	if _, err := repo.GetByEmail(ctx, email); err != userrepoport.ErrNotFound {
		t.Fatalf("GetByEmail(old) err=%v, want ErrNotFound", err)
	}
	changed := got
	changed.Subject = domain.SubjectID("sub-changed")
	if err := repo.Update(ctx, changed); err != userrepoport.ErrSubjectAlreadyBound {
		t.Fatalf("Update(changed subject) err=%v, want ErrSubjectAlreadyBound", err)
	}
}

func RunActivityRepo(t *testing.T, newRepo ActivityRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(5000, 0).UTC()
	user := domain.SubjectID("sub-" + uuid.NewString())
	older := activityrepoport.Activity{
		ID:             domain.ActivityID(uuid.NewString()),
		UserID:         user,
		Type:           domain.ActivityRunning,
		Duration:       30,
		CaloriesBurned: 300,
		StartTime:      now.Add(-2 * time.Hour),
		AdditionalMetrics: map[string]any{
			"distance": 5.2,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	newer := activityrepoport.Activity{
		ID:             domain.ActivityID(uuid.NewString()),
		UserID:         user,
		Type:           domain.ActivityYoga,
		Duration:       45,
		CaloriesBurned: 120,
		StartTime:      now.Add(-1 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, a := range []activityrepoport.Activity{older, newer} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create %s: %v", a.ID, err)
		}
	}
	if err := repo.Create(ctx, older); err != activityrepoport.ErrAlreadyExists {
		t.Fatalf("Create duplicate err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.GetByID(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.UserID != user || got.Type != domain.ActivityRunning || got.AdditionalMetrics["distance"] != 5.2 {
		t.Fatalf("unexpected activity: %#v", got)
	}
	if _, err := repo.GetByID(ctx, domain.ActivityID(uuid.NewString())); err != activityrepoport.ErrNotFound {
		t.Fatalf("GetByID(missing) err=%v, want ErrNotFound", err)
	}

	list, err := repo.ListByUser(ctx, user)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("unexpected ordering: %#v", list)
	}

	empty, err := repo.ListByUser(ctx, domain.SubjectID("sub-nobody-"+uuid.NewString()))
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListByUser(unknown)=%v err=%v", empty, err)
	}
}
