package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/gateway"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/gateway/usersync"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/httpapi"
	memactivityevents "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/activityevents"
	memactivityrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/activityrepo"
	memclock "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/clock"
	memidempotency "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/idempotency"
	memuserrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/userrepo"
	pgactivityrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/activityrepo"
	pgidempotency "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/testutil"
	pguserrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/postgres/userrepo"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/userclient"
	"github.com/fitness-tracker/fitness-platform/internal/app/activities"
	"github.com/fitness-tracker/fitness-platform/internal/app/users"
	"github.com/fitness-tracker/fitness-platform/internal/platform/auth/jwks_testutil"
	"github.com/fitness-tracker/fitness-platform/internal/platform/auth/jwtverifier"
	"github.com/fitness-tracker/fitness-platform/internal/platform/config"
	"github.com/fitness-tracker/fitness-platform/internal/platform/logger"
	activityrepoport "github.com/fitness-tracker/fitness-platform/internal/ports/out/activityrepo"
	idempotencyport "github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
	userrepoport "github.com/fitness-tracker/fitness-platform/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

const (
	testIssuer   = "itest-issuer"
	testAudience = "itest-aud"
)

// stack is a gateway in front of a user service and an activity service, all
// served from httptest servers.
type stack struct {
	baseURL string
	client  *http.Client
	key     jwks_testutil.Keypair
}

func newStack(t *testing.T, b backend, mode config.TokenMode) *stack {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 2, 12, 12, 0, 0, 0, time.UTC))
	log := logger.Discard()

	var (
		userRepo     userrepoport.Repository
		activityRepo activityrepoport.Repository
		idemStore    idempotencyport.Store
	)
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		userRepo = pguserrepo.NewRepo(pool)
		activityRepo = pgactivityrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		userRepo = memuserrepo.NewRepo()
		activityRepo = memactivityrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	userSvc := users.NewService(userRepo, clk)
	userSrv := httptest.NewServer(httpapi.NewUserRouter(httpapi.NewUsersHandler(userSvc, log), httpapi.RouterOptions{Logger: log}))
	t.Cleanup(userSrv.Close)
	userURL := mustURL(t, userSrv.URL)

	activitySvc := activities.NewService(activityRepo, memactivityevents.Discard{}, clk, log)
	activitySvc.Users = userclient.New(userURL, 2*time.Second)
	activitySrv := httptest.NewServer(httpapi.NewActivityRouter(httpapi.NewActivitiesHandler(activitySvc, idemStore, log), httpapi.RouterOptions{Logger: log}))
	t.Cleanup(activitySrv.Close)

	key, err := jwks_testutil.GenerateRSAKeypair("itest-kid")
	if err != nil {
		t.Fatalf("GenerateRSAKeypair: %v", err)
	}

	var decoder usersync.Decoder = usersync.NewUnverifiedDecoder()
	if mode == config.TokenModeVerify {
		jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
		t.Cleanup(jwksSrv.Close)
		setKeys([]jwks_testutil.Keypair{key})
		decoder = usersync.NewVerifyingDecoder(jwtverifier.New(config.JWTConfig{
			Issuer:      testIssuer,
			Audience:    testAudience,
			JWKSURL:     jwksSrv.URL,
			ClockSkew:   30 * time.Second,
			HTTPTimeout: 2 * time.Second,
		}))
	}

	filter := usersync.New(decoder, userclient.New(userURL, 2*time.Second), log, nil)
	gw := httptest.NewServer(gateway.NewRouter(
		gateway.Upstreams{Users: userURL, Activities: mustURL(t, activitySrv.URL)},
		filter,
		httpapi.RouterOptions{Logger: log},
	))
	t.Cleanup(gw.Close)

	return &stack{baseURL: gw.URL, client: gw.Client(), key: key}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

// token mints a Keycloak-shaped bearer token signed with the stack's key.
// Tokens use wall-clock time because the verifier does.
func (s *stack) token(t *testing.T, sub, email, first, last string) string {
	t.Helper()
	tok, err := jwks_testutil.MintRS256JWTWithClaims(s.key, testIssuer, testAudience, sub, time.Now(), 5*time.Minute, nil, map[string]any{
		"email":       email,
		"given_name":  first,
		"family_name": last,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + tok
}

type request struct {
	method        string
	path          string
	authorization string
	userID        string
	idemKey       string
	body          any
}

func (s *stack) do(t *testing.T, in request) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if in.body != nil {
		b, err := json.Marshal(in.body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(in.method, s.baseURL+in.path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if in.authorization != "" {
		req.Header.Set("Authorization", in.authorization)
	}
	if in.userID != "" {
		req.Header.Set(httpapi.HeaderUserID, in.userID)
	}
	if in.idemKey != "" {
		req.Header.Set("Idempotency-Key", in.idemKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
