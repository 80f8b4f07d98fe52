package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memactivityevents "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/activityevents"
	memactivityrepo "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/activityrepo"
	memclock "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/clock"
	memidempotency "github.com/fitness-tracker/fitness-platform/internal/adapters/memory/idempotency"
	"github.com/fitness-tracker/fitness-platform/internal/app/activities"
	"github.com/fitness-tracker/fitness-platform/internal/platform/logger"
)

const runningBody = `{
	"type": "RUNNING",
	"duration": 30,
	"caloriesBurned": 300,
	"startTime": "2025-02-12T10:00:00",
	"additionalMetrics": {"distance": 5.2, "averageSpeed": 10.4, "maxHeartRate": 165}
}`

func newTestActivityRouter(t *testing.T) (http.Handler, *memactivityevents.Recorder) {
	t.Helper()
	events := memactivityevents.NewRecorder()
	clk := memclock.NewManualClock(time.Date(2025, 2, 12, 12, 0, 0, 0, time.UTC))
	svc := activities.NewService(memactivityrepo.NewRepo(), events, clk, logger.Discard())
	h := NewActivitiesHandler(svc, memidempotency.NewStore(), logger.Discard())
	return NewActivityRouter(h, RouterOptions{Logger: logger.Discard()}), events
}

func postActivity(h http.Handler, userID, idemKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestActivities_TrackListGet(t *testing.T) {
	t.Parallel()

	h, events := newTestActivityRouter(t)

	rec := postActivity(h, "abc123", "", runningBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created activityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "abc123", created.UserID)
	assert.Equal(t, "RUNNING", created.Type)
	assert.Equal(t, time.Date(2025, 2, 12, 10, 0, 0, 0, time.UTC), created.StartTime)
	assert.Equal(t, 5.2, created.AdditionalMetrics["distance"])
	assert.Len(t, events.Events(), 1)

	rec = do(t, h, http.MethodGet, "/api/activities", "abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []activityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = do(t, h, http.MethodGet, "/api/activities/"+created.ID, "abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/activities/"+created.ID, "someone-else", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ACTIVITY_NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestActivities_RequireUserID(t *testing.T) {
	t.Parallel()

	h, events := newTestActivityRouter(t)
	rec := postActivity(h, "", "", runningBody)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, events.Events())
}

func TestActivities_Validation(t *testing.T) {
	t.Parallel()

	h, _ := newTestActivityRouter(t)

	cases := map[string]string{
		"unknown type":      `{"type":"SKYDIVING","duration":30,"startTime":"2025-02-12T10:00:00Z"}`,
		"bad start time":    `{"type":"RUNNING","duration":30,"startTime":"yesterday"}`,
		"zero duration":     `{"type":"RUNNING","duration":0,"startTime":"2025-02-12T10:00:00Z"}`,
		"mismatched userId": `{"userId":"other","type":"RUNNING","duration":30,"startTime":"2025-02-12T10:00:00Z"}`,
		"empty body":        ``,
	}
	for name, body := range cases {
		rec := postActivity(h, "abc123", "", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "%s: %s", name, rec.Body.String())
	}
}

func TestActivities_IdempotentReplayAndConflictOnReuse(t *testing.T) {
	t.Parallel()

	h, events := newTestActivityRouter(t)

	first := postActivity(h, "abc123", "key-1", runningBody)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := postActivity(h, "abc123", "key-1", runningBody)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
	assert.Len(t, events.Events(), 1, "replay must not track again")

	changed := strings.Replace(runningBody, `"duration": 30`, `"duration": 45`, 1)
	conflict := postActivity(h, "abc123", "key-1", changed)
	require.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", decodeError(t, conflict).Error.Code)

	// Keys are scoped per user.
	other := postActivity(h, "someone-else", "key-1", changed)
	require.Equal(t, http.StatusCreated, other.Code)
}

func TestActivities_FailedRequestDoesNotBindIdempotencyKey(t *testing.T) {
	t.Parallel()

	h, events := newTestActivityRouter(t)

	invalid := strings.Replace(runningBody, `"duration": 30`, `"duration": 0`, 1)
	rejected := postActivity(h, "abc123", "key-retry", invalid)
	require.Equal(t, http.StatusUnprocessableEntity, rejected.Code, rejected.Body.String())

	fixed := postActivity(h, "abc123", "key-retry", runningBody)
	require.Equal(t, http.StatusCreated, fixed.Code, fixed.Body.String())
	assert.Empty(t, fixed.Header().Get("Idempotent-Replayed"))

	// Once a request succeeds the key is bound to its body.
	replay := postActivity(h, "abc123", "key-retry", runningBody)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))

	conflict := postActivity(h, "abc123", "key-retry", invalid)
	require.Equal(t, http.StatusConflict, conflict.Code)
	assert.Len(t, events.Events(), 1)
}
