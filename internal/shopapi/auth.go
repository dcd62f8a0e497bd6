package shopapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/webserver"
)

type registerPayload struct {
	Email           string `json:"email" validate:"required,email,max=256"`
	Password        string `json:"password" validate:"required,min=6,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	FullName        string `json:"full_name" validate:"required,max=100"`
	Address         string `json:"address" validate:"omitempty,max=200"`
	PhoneNumber     string `json:"phone_number" validate:"omitempty,max=30"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
	Roles []string     `json:"roles"`
}

func registerAuthRoutes() {
	webserver.PublicPOST("/auth/register", register)
	webserver.PublicPOST("/auth/login", login)
}

func issueToken(c echo.Context, user *domain.User, roles []string) error {
	token, err := appContext(c).Tokens().Issue(user.ID, user.Email, roles, time.Now())
	if err != nil {
		return internalError(c, "Failed to issue token", err)
	}
	return ok(c, tokenResponse{Token: token, User: user, Roles: roles})
}

func register(c echo.Context) error {
	var payload registerPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}

	user, err := appContext(c).Users().Register(c.Request().Context(), auth.RegisterInput{
		Email:       payload.Email,
		Password:    payload.Password,
		FullName:    payload.FullName,
		Address:     payload.Address,
		PhoneNumber: payload.PhoneNumber,
	})
	if errors.Is(err, auth.ErrEmailTaken) {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered", map[string]string{"email": "unique"})
	} else if err != nil {
		return internalError(c, "Failed to register", err)
	}
	return issueToken(c, user, []string{domain.RoleUser})
}

func login(c echo.Context) error {
	var payload loginPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}

	user, roles, err := appContext(c).Users().Authenticate(c.Request().Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, auth.ErrLockedOut):
		return fail(c, http.StatusForbidden, "ACCOUNT_LOCKED", "Account is locked", nil)
	case err != nil:
		return internalError(c, "Failed to sign in", err)
	}
	return issueToken(c, user, roles)
}
