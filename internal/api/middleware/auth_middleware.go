package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/emontalvo/tienda-storefront/internal/authz"
	"github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	service "github.com/emontalvo/tienda-storefront/internal/services"
	"github.com/emontalvo/tienda-storefront/internal/utils/response"
	"github.com/google/uuid"
)

type contextKey uuid.UUID

var UserContextKey = contextKey(uuid.New())

type AuthMiddleware struct {
	users service.UserService
}

func NewAuthMiddleware(users service.UserService) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// Authenticate validates the bearer token and stores the staff claims in
// the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header")
			response.Error(w, errors.UnauthorizedError("Authorization header is required"))

			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			logger.Warn("Invalid authorization header format")
			response.Error(w, errors.UnauthorizedError("Invalid authorization format"))

			return
		}

		claims, err := m.users.VerifyToken(tokenParts[1])
		if err != nil {
			logger.Warn("Token verification failed", slog.String("error", err.Error()))
			response.Error(w, errors.UnauthorizedError("Invalid or expired token"))

			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)

		requestScopedLogger := logger.With(
			slog.String("userId", claims.UserID.String()),
			slog.String("role", string(claims.Role)))
		ctx = context.WithValue(ctx, LoggerKey, requestScopedLogger)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Require gates the handler on the role policy for an action. It must run
// after Authenticate.
func (m *AuthMiddleware) Require(action authz.Action, next http.Handler) http.HandlerFunc {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		if !authz.Allow(claims.Role, action) {
			LoggerFromContext(r.Context()).Warn("Action forbidden for role",
				slog.String("action", string(action)))
			response.Error(w, errors.ForbiddenError("Insufficient permissions"))

			return
		}

		next.ServeHTTP(w, r)
	}))
}

func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)

	return claims, ok
}
