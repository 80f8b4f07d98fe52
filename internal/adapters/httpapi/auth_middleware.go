package httpapi

import (
	"net/http"
	"strings"

	"github.com/fitness-tracker/fitness-platform/internal/domain"
)

// RequireUserID trusts the X-User-ID header set by the gateway and stores it in
// request context. Requests without it get a 401.
//
// Services must only be reachable through the gateway: the header is not
// authenticated here.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			WriteError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+HeaderUserID+" header", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), domain.SubjectID(id))))
	})
}
