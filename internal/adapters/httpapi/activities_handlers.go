package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fitness-tracker/fitness-platform/internal/app/activities"
	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/idempotency"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	routeTrackActivity   = "/api/activities"
)

type ActivitiesHandler struct {
	svc  *activities.Service
	idem idempotency.Store
	log  *slog.Logger
}

// NewActivitiesHandler wires the activity endpoints; idem may be nil to disable replay.
func NewActivitiesHandler(svc *activities.Service, idem idempotency.Store, log *slog.Logger) *ActivitiesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ActivitiesHandler{svc: svc, idem: idem, log: log}
}

// Routes mounts the activity endpoints under /api/activities. All of them need X-User-ID.
func (h *ActivitiesHandler) Routes(r chi.Router) {
	r.Use(RequireUserID)
	r.Post("/", h.track)
	r.Get("/", h.list)
	r.Get("/{activityId}", h.get)
}

// activityTime accepts RFC 3339 and zone-less local timestamps ("2025-02-12T10:00:00"),
// the latter read as UTC.
type activityTime struct{ time.Time }

var activityTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}

func (t *activityTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range activityTimeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return &json.UnmarshalTypeError{Value: "string " + s, Type: reflect.TypeOf(time.Time{}), Field: "startTime"}
}

type trackActivityRequest struct {
	// UserID is accepted for compatibility with older clients; it must match X-User-ID.
	UserID            string         `json:"userId,omitempty"`
	Type              string         `json:"type"`
	Duration          int            `json:"duration"`
	CaloriesBurned    int            `json:"caloriesBurned"`
	StartTime         activityTime   `json:"startTime"`
	AdditionalMetrics map[string]any `json:"additionalMetrics,omitempty"`
}

type activityResponse struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId"`
	Type              string         `json:"type"`
	Duration          int            `json:"duration"`
	CaloriesBurned    int            `json:"caloriesBurned"`
	StartTime         time.Time      `json:"startTime"`
	AdditionalMetrics map[string]any `json:"additionalMetrics,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func toActivityResponse(a domain.Activity) activityResponse {
	return activityResponse{
		ID:                string(a.ID),
		UserID:            string(a.UserID),
		Type:              string(a.Type),
		Duration:          a.Duration,
		CaloriesBurned:    a.CaloriesBurned,
		StartTime:         a.StartTime,
		AdditionalMetrics: a.AdditionalMetrics,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func (h *ActivitiesHandler) track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserIDFromContext(ctx)

	var req trackActivityRequest
	if details, err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), details)
		return
	}
	if req.UserID != "" && domain.SubjectID(req.UserID) != user {
		WriteError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid userId",
			map[string]any{"userId": "must match " + HeaderUserID})
		return
	}

	// Idempotency handling:
	// - replay if same user+key+route+bodyHash
	// - reject if same user+key+route with a different bodyHash (409)
	// - the key is bound to a body only once a request with it succeeds
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	var (
		metaFP   idempotency.Fingerprint
		respFP   idempotency.Fingerprint
		bodyHash string
		haveMeta bool
	)
	if h.idem != nil && key != "" {
		var err error
		if bodyHash, err = hashTrackActivityBody(req); err != nil {
			writeAppError(w, r, h.log, err)
			return
		}
		metaFP = idempotency.Fingerprint{
			Key:    idempotency.Key(key),
			User:   user,
			Method: http.MethodPost,
			Route:  routeTrackActivity,
		}
		if meta, ok, err := h.idem.Get(ctx, metaFP); err != nil {
			writeAppError(w, r, h.log, err)
			return
		} else if ok {
			if string(meta.Body) != bodyHash {
				WriteError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", "idempotency key reuse with different payload", nil)
				return
			}
			haveMeta = true
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, ok, err := h.idem.Get(ctx, respFP); err != nil {
			writeAppError(w, r, h.log, err)
			return
		} else if ok && rec.StatusCode == http.StatusCreated {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	a, err := h.svc.TrackActivity(ctx, user, activities.TrackActivityInput{
		Type:              domain.ActivityType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Duration:          req.Duration,
		CaloriesBurned:    req.CaloriesBurned,
		StartTime:         req.StartTime.Time,
		AdditionalMetrics: req.AdditionalMetrics,
	})
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(toActivityResponse(a)); err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	if respFP.Key != "" {
		if !haveMeta {
			if err := h.idem.Put(ctx, metaFP, idempotency.Record{
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			}); err != nil {
				h.log.WarnContext(ctx, "idempotency put failed", "error", err)
			}
		}
		if err := h.idem.Put(ctx, respFP, idempotency.Record{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        buf.Bytes(),
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			h.log.WarnContext(ctx, "idempotency put failed", "error", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(buf.Bytes())
}

func (h *ActivitiesHandler) list(w http.ResponseWriter, r *http.Request) {
	user, _ := UserIDFromContext(r.Context())
	as, err := h.svc.ListUserActivities(r.Context(), user)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	out := make([]activityResponse, 0, len(as))
	for _, a := range as {
		out = append(out, toActivityResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ActivitiesHandler) get(w http.ResponseWriter, r *http.Request) {
	user, _ := UserIDFromContext(r.Context())
	a, err := h.svc.GetActivity(r.Context(), user, domain.ActivityID(chi.URLParam(r, "activityId")))
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityResponse(a))
}

// hashTrackActivityBody canonicalizes fields with normalization semantics before hashing.
func hashTrackActivityBody(b trackActivityRequest) (string, error) {
	canon := struct {
		Type              string         `json:"type"`
		Duration          int            `json:"duration"`
		CaloriesBurned    int            `json:"caloriesBurned"`
		StartTime         time.Time      `json:"startTime"`
		AdditionalMetrics map[string]any `json:"additionalMetrics,omitempty"`
	}{
		Type:              strings.ToUpper(strings.TrimSpace(b.Type)),
		Duration:          b.Duration,
		CaloriesBurned:    b.CaloriesBurned,
		StartTime:         b.StartTime.UTC(),
		AdditionalMetrics: b.AdditionalMetrics,
	}
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("hash request body: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
