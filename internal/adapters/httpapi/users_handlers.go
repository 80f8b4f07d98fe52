package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime/types"

	"github.com/fitness-tracker/fitness-platform/internal/app/users"
	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

type UsersHandler struct {
	svc *users.Service
	log *slog.Logger
}

func NewUsersHandler(svc *users.Service, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{svc: svc, log: log}
}

// Routes mounts the user endpoints under /api/users.
func (h *UsersHandler) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Get("/{userId}/validate", h.validate)
	r.With(RequireUserID).Get("/me", h.getMe)
	r.With(RequireUserID).Patch("/me", h.updateMe)
	r.Get("/{userId}", h.getProfile)
}

type registerRequest struct {
	IdentityID         string      `json:"identityId"`
	Email              types.Email `json:"email"`
	Password           string      `json:"password,omitempty"`
	FirstName          string      `json:"firstName"`
	LastName           string      `json:"lastName"`
	ExternalCredential bool        `json:"externalCredential,omitempty"`
}

type updateMeRequest struct {
	FirstName nullable.Nullable[string]      `json:"firstName,omitempty"`
	LastName  nullable.Nullable[string]      `json:"lastName,omitempty"`
	Email     nullable.Nullable[types.Email] `json:"email,omitempty"`
}

// userResponse never carries credential material.
type userResponse struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identityId"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:         string(u.ID),
		IdentityID: string(u.Subject),
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (h *UsersHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if details, err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), details)
		return
	}
	u, err := h.svc.Register(r.Context(), users.RegisterInput{
		Subject:   domain.SubjectID(req.IdentityID),
		Email:     string(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		External:  req.ExternalCredential,
	})
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// validate answers a bare JSON boolean; the path value is the identity subject.
func (h *UsersHandler) validate(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.ValidateSubject(r.Context(), domain.SubjectID(chi.URLParam(r, "userId")))
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

func (h *UsersHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetProfile(r.Context(), domain.UserID(chi.URLParam(r, "userId")))
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UsersHandler) getMe(w http.ResponseWriter, r *http.Request) {
	sub, _ := UserIDFromContext(r.Context())
	u, err := h.svc.GetMyProfile(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UsersHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	sub, _ := UserIDFromContext(r.Context())
	var req updateMeRequest
	if details, err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), details)
		return
	}
	u, err := h.svc.UpdateMyProfile(r.Context(), sub, users.UpdateMyProfileInput{
		FirstName: toOptional(req.FirstName),
		LastName:  toOptional(req.LastName),
		Email:     toOptional(mapNullable(req.Email, func(e types.Email) string { return string(e) })),
	})
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func toOptional[T any](n nullable.Nullable[T]) users.Optional[T] {
	if !n.IsSpecified() {
		return users.Unspecified[T]()
	}
	if n.IsNull() {
		return users.Null[T]()
	}
	return users.Some(n.MustGet())
}

func mapNullable[A, B any](n nullable.Nullable[A], f func(A) B) nullable.Nullable[B] {
	var out nullable.Nullable[B]
	switch {
	case !n.IsSpecified():
	case n.IsNull():
		out.SetNull()
	default:
		out.Set(f(n.MustGet()))
	}
	return out
}
