package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	memclock "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/clock"
	memuserrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/userrepo"
	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

func newTestService() (*Service, *memuserrepo.Repo, *memclock.ManualClock) {
	repo := memuserrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	return NewService(repo, clk), repo, clk
}

func wantAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != status || ae.Code != code {
		t.Fatalf("err=%v (type=%T), want %s %d", err, err, code, status)
	}
}

func TestService_RegisterExternal_ThenValidate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Subject:   domain.SubjectID("abc123"),
		Email:     " Alice@Example.com ",
		FirstName: "  Alice ",
		LastName:  "Johnson",
		External:  true,
	})
	if err != nil {
		t.Fatalf("Register err=%v", err)
	}
	if u.Email != "alice@example.com" || u.FirstName != "Alice" || u.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !u.Credential.IsExternal() {
		t.Fatalf("credential kind=%q, want external", u.Credential.Kind)
	}
	if err := u.Credential.Verify("anything"); !errors.Is(err, domain.ErrCredentialExternal) {
		t.Fatalf("Verify err=%v, want ErrCredentialExternal", err)
	}

	ok, err := svc.ValidateSubject(ctx, domain.SubjectID("abc123"))
	if err != nil || !ok {
		t.Fatalf("ValidateSubject(abc123)=%v err=%v", ok, err)
	}
	ok, err = svc.ValidateSubject(ctx, domain.SubjectID("nobody"))
	if err != nil || ok {
		t.Fatalf("ValidateSubject(nobody)=%v err=%v", ok, err)
	}
	ok, err = svc.ValidateSubject(ctx, domain.SubjectID("  "))
	if err != nil || ok {
		t.Fatalf("ValidateSubject(blank)=%v err=%v", ok, err)
	}
}

func TestService_RegisterPassword(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	u, err := svc.Register(context.Background(), RegisterInput{
		Subject:  domain.SubjectID("sub-1"),
		Email:    "bob@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register err=%v", err)
	}
	if u.Credential.Kind != domain.CredentialPassword {
		t.Fatalf("kind=%q", u.Credential.Kind)
	}
	if err := u.Credential.Verify("correct horse"); err != nil {
		t.Fatalf("Verify err=%v", err)
	}
	if err := u.Credential.Verify("wrong"); !errors.Is(err, domain.ErrCredentialMismatch) {
		t.Fatalf("Verify(wrong) err=%v", err)
	}
}

func TestService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing subject", RegisterInput{Email: "a@example.com", External: true}, "identityId"},
		{"bad email", RegisterInput{Subject: "s", Email: "not-an-email", External: true}, "email"},
		{"display-name email", RegisterInput{Subject: "s", Email: "Alice <a@example.com>", External: true}, "email"},
		{"no credential", RegisterInput{Subject: "s", Email: "a@example.com"}, "password"},
		{"short password", RegisterInput{Subject: "s", Email: "a@example.com", Password: "short"}, "password"},
		{"password with external", RegisterInput{Subject: "s", Email: "a@example.com", Password: "longenough", External: true}, "password"},
	}
	for _, tc := range cases {
		_, err := svc.Register(ctx, tc.in)
		wantAppError(t, err, 422, "VALIDATION_ERROR")
		ae := err.(*Error)
		if _, ok := ae.Details[tc.field]; !ok {
			t.Fatalf("%s: details=%v, want key %q", tc.name, ae.Details, tc.field)
		}
	}
}

func TestService_Register_DuplicateSubjectReturnsExisting(t *testing.T) {
	t.Parallel()

	svc, _, clk := newTestService()
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Subject: "abc123", Email: "alice@example.com", FirstName: "Alice", External: true})
	if err != nil {
		t.Fatalf("Register err=%v", err)
	}
	clk.Advance(time.Minute)
	second, err := svc.Register(ctx, RegisterInput{Subject: "abc123", Email: "other@example.com", FirstName: "Changed", External: true})
	if err != nil {
		t.Fatalf("second Register err=%v", err)
	}
	if second.ID != first.ID || second.Email != "alice@example.com" || second.FirstName != "Alice" {
		t.Fatalf("second=%+v, want unchanged %+v", second, first)
	}
}

func TestService_Register_EmailInUse(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Subject: "sub-1", Email: "alice@example.com", External: true}); err != nil {
		t.Fatalf("Register err=%v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{Subject: "sub-2", Email: "ALICE@example.com", External: true})
	wantAppError(t, err, 409, "EMAIL_ALREADY_IN_USE")
}

// racingRepo reports the subject as unbound on the first lookup, then lets
// Create fail the way a concurrent winner would make it fail.
type racingRepo struct {
	*memuserrepo.Repo
	once   sync.Once
	winner userrepo.User
}

func (r *racingRepo) GetBySubject(ctx context.Context, subject domain.SubjectID) (userrepo.User, error) {
	first := false
	r.once.Do(func() { first = true })
	if first {
		if err := r.Repo.Create(ctx, r.winner); err != nil {
			return userrepo.User{}, err
		}
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return r.Repo.GetBySubject(ctx, subject)
}

func TestService_Register_LostRaceReturnsWinner(t *testing.T) {
	t.Parallel()

	now := time.Unix(100, 0).UTC()
	repo := &racingRepo{
		Repo: memuserrepo.NewRepo(),
		winner: userrepo.User{
			ID:             "winner",
			Subject:        "abc123",
			Email:          "winner@example.com",
			Role:           domain.RoleUser,
			CredentialKind: domain.CredentialExternal,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	svc := NewService(repo, memclock.NewManualClock(now))

	u, err := svc.Register(context.Background(), RegisterInput{Subject: "abc123", Email: "loser@example.com", External: true})
	if err != nil {
		t.Fatalf("Register err=%v", err)
	}
	if u.ID != "winner" {
		t.Fatalf("id=%q, want winner", u.ID)
	}
}

func TestService_ConcurrentRegistrationsConverge(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	const n = 16
	ids := make(chan domain.UserID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := svc.Register(ctx, RegisterInput{Subject: "abc123", Email: "alice@example.com", External: true})
			if err != nil {
				t.Errorf("Register err=%v", err)
				return
			}
			ids <- u.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first domain.UserID
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("registrations diverged: %q vs %q", first, id)
		}
	}
}

func TestService_GetProfile_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	_, err := svc.GetProfile(context.Background(), domain.UserID("missing"))
	wantAppError(t, err, 404, "USER_NOT_FOUND")
}

func TestService_GetMyProfile_NotProvisioned(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	_, err := svc.GetMyProfile(context.Background(), domain.SubjectID("sub-1"))
	wantAppError(t, err, 404, "USER_NOT_PROVISIONED")
}

func TestService_UpdateMyProfile(t *testing.T) {
	t.Parallel()

	svc, _, clk := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterInput{Subject: "sub-1", Email: "alice@example.com", FirstName: "Alice", LastName: "Johnson", External: true})
	if err != nil {
		t.Fatalf("Register err=%v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Subject: "sub-2", Email: "bob@example.com", External: true}); err != nil {
		t.Fatalf("Register bob err=%v", err)
	}

	clk.Advance(time.Hour)
	got, err := svc.UpdateMyProfile(ctx, "sub-1", UpdateMyProfileInput{
		FirstName: Some("  Alicia  "),
		LastName:  Null[string](),
		Email:     Unspecified[string](),
	})
	if err != nil {
		t.Fatalf("UpdateMyProfile err=%v", err)
	}
	if got.FirstName != "Alicia" || got.LastName != "" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt not advanced: %v", got.UpdatedAt)
	}

	_, err = svc.UpdateMyProfile(ctx, "sub-1", UpdateMyProfileInput{Email: Null[string]()})
	wantAppError(t, err, 422, "VALIDATION_ERROR")

	_, err = svc.UpdateMyProfile(ctx, "sub-1", UpdateMyProfileInput{Email: Some("Bob@Example.com")})
	wantAppError(t, err, 409, "EMAIL_ALREADY_IN_USE")

	// Re-setting the caller's own address is not a conflict.
	if _, err := svc.UpdateMyProfile(ctx, "sub-1", UpdateMyProfileInput{Email: Some("ALICE@example.com")}); err != nil {
		t.Fatalf("UpdateMyProfile(own email) err=%v", err)
	}

	_, err = svc.UpdateMyProfile(ctx, "sub-unknown", UpdateMyProfileInput{})
	wantAppError(t, err, 404, "USER_NOT_PROVISIONED")
}
