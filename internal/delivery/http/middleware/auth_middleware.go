package middleware

import (
	"lens/internal/delivery/http/response"
	"lens/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware gates routes that need a signed-in session. The session
// lives server-side in the session store, so there is nothing to parse from
// the request; the current projection is the whole answer.
type AuthMiddleware struct {
	auth usecase.AuthUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(auth usecase.AuthUsecase) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate rejects the request when no valid session exists.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !m.auth.IsAuthenticated(c.Request().Context()) {
			return response.Unauthorized(c, "NOT_AUTHENTICATED", "Sign in to use this endpoint")
		}

		return next(c)
	}
}
