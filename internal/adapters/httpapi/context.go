package httpapi

import (
	"context"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

// HeaderUserID carries the caller identity resolved by the gateway.
const HeaderUserID = "X-User-ID"

type userIDKey struct{}

func WithUserID(ctx context.Context, id domain.SubjectID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func UserIDFromContext(ctx context.Context) (domain.SubjectID, bool) {
	v, ok := ctx.Value(userIDKey{}).(domain.SubjectID)
	return v, ok && v != ""
}
