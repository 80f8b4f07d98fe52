package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/fitness-tracker/fitness-platform/internal/app/activities"
	"github.com/fitness-tracker/fitness-platform/internal/app/users"
)

// ErrorResponse is the JSON error envelope shared by every service.
type ErrorResponse struct {
	Error struct {
		Code      string                            `json:"code"`
		Message   string                            `json:"message"`
		Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
		RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
	} `json:"error"`
}

// WriteError writes the JSON error envelope, stamping chi's request id when present.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps application errors onto the envelope; anything else is a 500.
func writeAppError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if ue := (*users.Error)(nil); errors.As(err, &ue) {
		WriteError(w, r, ue.Status, ue.Code, ue.Message, ue.Details)
		return
	}
	if ae := (*activities.Error)(nil); errors.As(err, &ae) {
		WriteError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	log.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	WriteError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
