package itest

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/fitness-tracker/fitness-platform/internal/platform/auth/jwks_testutil"
	"github.com/fitness-tracker/fitness-platform/internal/platform/config"
)

type userBody struct {
	ID         string `json:"id"`
	IdentityID string `json:"identityId"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role"`
}

type activityBody struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

func runningActivity(calories int) map[string]any {
	return map[string]any{
		"type":           "RUNNING",
		"duration":       30,
		"caloriesBurned": calories,
		"startTime":      "2025-02-12T10:00:00",
		"additionalMetrics": map[string]any{
			"distance": 5.2,
		},
	}
}

func TestUserSync_FirstSight_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		for _, mode := range []config.TokenMode{config.TokenModeDecode, config.TokenModeVerify} {
			t.Run(string(b)+"/"+string(mode), func(t *testing.T) {
				s := newStack(t, b, mode)

				sub := "kc-" + uuid.NewString()
				email := sub + "@example.com"
				bearer := s.token(t, sub, email, "Ada", "Lovelace")

				// Without any identity the user service rejects /me.
				{
					status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/users/me"})
					requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
				}

				// First request with a token registers the shadow user and stamps X-User-ID.
				var me userBody
				{
					status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/users/me", authorization: bearer})
					requireStatus(t, status, body, http.StatusOK)
					me = mustUnmarshal[userBody](t, body)
					if me.IdentityID != sub || me.Email != email || me.FirstName != "Ada" || me.LastName != "Lovelace" {
						t.Fatalf("unexpected profile: %+v", me)
					}
				}

				// A second request finds the user and does not re-register.
				{
					status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/users/me", authorization: bearer})
					requireStatus(t, status, body, http.StatusOK)
					again := mustUnmarshal[userBody](t, body)
					if again.ID != me.ID {
						t.Fatalf("id=%q want=%q", again.ID, me.ID)
					}
				}

				{
					status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/users/" + sub + "/validate"})
					requireStatus(t, status, body, http.StatusOK)
					if !mustUnmarshal[bool](t, body) {
						t.Fatalf("expected %q to validate", sub)
					}
				}

				// Track an activity as the synced user, then replay it.
				var created activityBody
				key := uuid.NewString()
				{
					status, body, _ := s.do(t, request{method: http.MethodPost, path: "/api/activities", authorization: bearer, idemKey: key, body: runningActivity(300)})
					requireStatus(t, status, body, http.StatusCreated)
					created = mustUnmarshal[activityBody](t, body)
					if created.UserID != sub || created.Type != "RUNNING" || created.ID == "" {
						t.Fatalf("unexpected activity: %+v", created)
					}
				}
				{
					status, body, hdr := s.do(t, request{method: http.MethodPost, path: "/api/activities", authorization: bearer, idemKey: key, body: runningActivity(300)})
					requireStatus(t, status, body, http.StatusCreated)
					requireHeaderPresent(t, hdr, "Idempotent-Replayed")
					if got := mustUnmarshal[activityBody](t, body); got.ID != created.ID {
						t.Fatalf("replay id=%q want=%q", got.ID, created.ID)
					}
				}
				{
					status, body, _ := s.do(t, request{method: http.MethodPost, path: "/api/activities", authorization: bearer, idemKey: key, body: runningActivity(999)})
					requireErrorCode(t, status, body, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED")
				}

				{
					status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/activities", authorization: bearer})
					requireStatus(t, status, body, http.StatusOK)
					list := mustUnmarshal[[]activityBody](t, body)
					if len(list) != 1 || list[0].ID != created.ID {
						t.Fatalf("unexpected list: %+v", list)
					}
				}
				{
					status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/activities/" + created.ID, authorization: bearer})
					requireStatus(t, status, body, http.StatusOK)
				}

				// Another user cannot see the activity.
				{
					other := s.token(t, "kc-"+uuid.NewString(), uuid.NewString()+"@example.com", "Bob", "B")
					status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/activities/" + created.ID, authorization: other})
					requireErrorCode(t, status, body, http.StatusNotFound, "ACTIVITY_NOT_FOUND")
				}
			})
		}
	}
}

func TestUserSync_HintWithoutClaims_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			s := newStack(t, b, config.TokenModeDecode)

			// The hint is stamped but nothing is registered, so the activity
			// service does not know the user.
			hint := "kc-" + uuid.NewString()
			status, body, _ := s.do(t, request{
				method:        http.MethodPost,
				path:          "/api/activities",
				authorization: "Bearer not-a-token",
				userID:        hint,
				body:          runningActivity(100),
			})
			requireErrorCode(t, status, body, http.StatusUnprocessableEntity, "UNKNOWN_USER")

			status, body, _ = s.do(t, request{method: http.MethodGet, path: "/api/users/" + hint + "/validate"})
			requireStatus(t, status, body, http.StatusOK)
			if got := mustUnmarshal[bool](t, body); got {
				t.Fatalf("expected hinted identity to stay unregistered")
			}
		})
	}
}

func TestUserSync_VerifyModeIgnoresForgedToken_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			s := newStack(t, b, config.TokenModeVerify)

			// Same kid as the published key, different key material.
			other, err := jwks_testutil.GenerateRSAKeypair("itest-kid")
			if err != nil {
				t.Fatalf("GenerateRSAKeypair: %v", err)
			}
			forged := (&stack{key: other}).token(t, "kc-"+uuid.NewString(), "mallory@example.com", "M", "M")

			status, body, _ := s.do(t, request{method: http.MethodGet, path: "/api/users/me", authorization: forged})
			requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
		})
	}
}
