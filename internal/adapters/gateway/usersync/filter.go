// Package usersync keeps the user service in step with the identities seen at
// the gateway. Every request carrying a bearer token is checked against the user
// directory, unknown identities are registered from the token claims, and the
// resolved identity is forwarded in X-User-ID.
package usersync

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/httpapi"
	"github.com/fitness-tracker/fitness-platform/internal/domain"
	"github.com/fitness-tracker/fitness-platform/internal/platform/metrics"
	"github.com/fitness-tracker/fitness-platform/internal/ports/out/userdirectory"
)

const tracerName = "gateway/usersync"

// Outcome labels for usersync_outcomes_total.
const (
	OutcomePassthrough     = "passthrough"
	OutcomeExisting        = "existing"
	OutcomeRegistered      = "registered"
	OutcomeSkippedNoClaims = "skipped_no_claims"
	OutcomeLookupError     = "lookup_error"
	OutcomeRegisterError   = "register_error"
)

type Filter struct {
	decoder Decoder
	users   userdirectory.Directory
	log     *slog.Logger
	metrics *metrics.UserSync
	tracer  trace.Tracer
}

// New returns a filter. A nil logger logs to slog.Default and nil metrics are
// not recorded.
func New(decoder Decoder, users userdirectory.Directory, log *slog.Logger, m *metrics.UserSync) *Filter {
	if log == nil {
		log = slog.Default()
	}
	return &Filter{decoder: decoder, users: users, log: log, metrics: m, tracer: otel.Tracer(tracerName)}
}

// WithTracerProvider replaces the global tracer provider for this filter.
func (f *Filter) WithTracerProvider(tp trace.TracerProvider) *Filter {
	f.tracer = tp.Tracer(tracerName)
	return f
}

// Middleware never rejects a request. Collaborator failures are logged and the
// request is forwarded.
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authorization := r.Header.Get("Authorization")
		hint := r.Header.Get(httpapi.HeaderUserID)

		if authorization == "" {
			f.metrics.IncOutcome(OutcomePassthrough)
			next.ServeHTTP(w, r)
			return
		}

		claims, decErr := f.decoder.Decode(ctx, authorization)
		if decErr != nil {
			f.logDecodeError(ctx, decErr)
		}

		identity := hint
		if identity == "" && decErr == nil {
			identity = claims.Subject
		}
		if identity == "" {
			f.metrics.IncOutcome(OutcomePassthrough)
			next.ServeHTTP(w, r)
			return
		}

		var c *Claims
		if decErr == nil {
			c = &claims
		}
		f.sync(ctx, domain.SubjectID(identity), c)

		r.Header.Set(httpapi.HeaderUserID, identity)
		next.ServeHTTP(w, r.WithContext(httpapi.WithUserID(ctx, domain.SubjectID(identity))))
	})
}

// sync checks the identity once and registers it when unknown and claims are
// available.
func (f *Filter) sync(ctx context.Context, id domain.SubjectID, claims *Claims) {
	ctx, span := f.tracer.Start(ctx, "usersync.Sync")
	defer span.End()
	span.SetAttributes(attribute.String("user.identity", string(id)))

	log := f.log.With("request_id", middleware.GetReqID(ctx), "user_id", string(id))

	exists, err := f.users.IdentityExists(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity lookup failed")
		f.metrics.IncOutcome(OutcomeLookupError)
		log.WarnContext(ctx, "user lookup failed, skipping sync", "error", err)
		return
	}
	if exists {
		f.metrics.IncOutcome(OutcomeExisting)
		log.InfoContext(ctx, "user already exists, skipping sync")
		return
	}
	if claims == nil {
		f.metrics.IncOutcome(OutcomeSkippedNoClaims)
		return
	}

	rec := userdirectory.RegistrationRecord{
		IdentityID: id,
		Email:      claims.Email,
		FirstName:  claims.FirstName,
		LastName:   claims.LastName,
		Credential: domain.ExternalCredential(),
	}
	if err := f.users.RegisterIdentity(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		f.metrics.IncOutcome(OutcomeRegisterError)
		log.WarnContext(ctx, "user registration failed", "error", err)
		return
	}
	f.metrics.IncOutcome(OutcomeRegistered)
	log.InfoContext(ctx, "registered user from token claims")
}

func (f *Filter) logDecodeError(ctx context.Context, err error) {
	var de *DecodeError
	reason := "unknown"
	if errors.As(err, &de) {
		reason = string(de.Reason)
	}
	f.log.DebugContext(ctx, "no usable token claims",
		"request_id", middleware.GetReqID(ctx),
		"reason", reason,
		"error", err,
	)
}
