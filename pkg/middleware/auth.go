package middleware

import (
	"net/http"

	"trip-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity headers set by the edge proxy after it authenticates the caller.
// This service trusts them; it must not be reachable without the proxy.
const (
	actorIDHeader   = "X-Actor-ID"
	actorRoleHeader = "X-Actor-Role"
)

// Actor middleware untuk validasi identity headers dari edge proxy
func Actor(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get(actorIDHeader)
			if rawID == "" {
				utils.ResponseUnauthorized(w, "Missing actor identity")
				return
			}

			actorID, err := uuid.Parse(rawID)
			if err != nil {
				logger.Warn("Invalid actor ID header",
					zap.String("actor_id", rawID),
					zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid actor identity")
				return
			}

			role := r.Header.Get(actorRoleHeader)
			if role == "" {
				role = "customer"
			}

			ctx := utils.SetUserContext(r.Context(), actorID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Admin - middleware cek role admin
func Admin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			role, _ := utils.GetRoleFromContext(r.Context())
			if role != "admin" {
				logger.Warn("Admin check: non-admin access attempt",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
