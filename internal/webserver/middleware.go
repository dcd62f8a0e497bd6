package webserver

import (
	"errors"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/auth"
)

const (
	appCtxKey = "appctx"
	claimsKey = "user"
)

func appContextMiddleware(appCtx app.AppContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appCtxKey, appCtx)
			return next(c)
		}
	}
}

// GetAppContext returns the application bound to the request.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appCtxKey).(app.AppContext)
}

func jwtMiddleware(appCtx app.AppContext) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: claimsKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return appCtx.Tokens().Parse(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, echojwt.ErrJWTMissing) {
				return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			}
			return Fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
		},
	})
}

// CurrentClaims returns the verified token claims, nil on anonymous routes.
func CurrentClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey).(*auth.Claims)
	return claims
}

// CurrentUserID returns the signed-in user id, 0 when anonymous.
func CurrentUserID(c echo.Context) int64 {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UserId
	}
	return 0
}

// activeAccount rejects tokens of deleted or locked accounts.
func activeAccount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentClaims(c)
			if claims == nil {
				return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			}
			user, err := GetAppContext(c).Users().GetByID(c.Request().Context(), claims.UserId)
			if errors.Is(err, auth.ErrUserNotFound) {
				return Fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
			} else if err != nil {
				return Fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
			}
			if user.IsLockedOut(time.Now()) {
				return Fail(c, http.StatusForbidden, "ACCOUNT_LOCKED", "Account is locked", nil)
			}
			return next(c)
		}
	}
}

// RequireRole allows the request only when the token carries role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentClaims(c)
			if claims == nil {
				return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			}
			if !claims.HasRole(role) {
				return Fail(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", nil)
			}
			return next(c)
		}
	}
}
