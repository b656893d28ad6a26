package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/ctxkeys"
	"github.com/adpanel/adpanel/internal/service"
)

// AuthMiddleware checks for a bearer token and adds the user to context if valid.
// The user row is loaded on every request so role changes apply immediately.
func AuthMiddleware(authService *service.AuthService, userService *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.Authenticate(token)
			if err != nil {
				// Invalid token, continue unauthenticated
				next.ServeHTTP(w, r)
				return
			}

			user, err := userService.ByID(r.Context(), claims.UserID)
			if err != nil {
				if apperr.KindOf(err) != apperr.KindNotFound {
					slog.Error("failed to load user for token", "error", err, "user_id", claims.UserID)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			if claims.ImpersonatedBy != "" {
				ctx = ctxkeys.WithImpersonator(ctx, claims.ImpersonatedBy)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth ensures the request carries a valid bearer token
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			apperr.WriteHTTP(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireAdmin ensures the caller holds the admin capability. It runs before
// the handler so nothing about the target resource is revealed.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if !user.Capabilities().IsAdmin {
			slog.Warn("admin route denied", "user_id", user.ID, "path", r.URL.Path)
			apperr.WriteHTTP(w, r, apperr.Forbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
