package shopapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/webserver"
)

type profilePayload struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Address     string `json:"address" validate:"max=200"`
	PhoneNumber string `json:"phone_number" validate:"max=20"`
}

type passwordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func registerProfileRoutes() {
	webserver.UserGET("/profile", getProfile)
	webserver.UserPUT("/profile", updateProfile)
	webserver.UserPUT("/profile/password", changePassword)
}

func getProfile(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := appContext(c).Users().GetByID(ctx, currentUser(c))
	if err != nil {
		return internalError(c, "Failed to load profile", err)
	}
	roles, err := appContext(c).Users().RolesOf(ctx, user.ID)
	if err != nil {
		return internalError(c, "Failed to load profile", err)
	}
	return ok(c, map[string]interface{}{"user": user, "roles": roles})
}

func updateProfile(c echo.Context) error {
	var payload profilePayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}
	user, err := appContext(c).Users().UpdateProfile(c.Request().Context(), currentUser(c), auth.ProfileInput{
		FullName:    payload.FullName,
		Address:     payload.Address,
		PhoneNumber: payload.PhoneNumber,
	})
	if err != nil {
		return internalError(c, "Failed to update profile", err)
	}
	return ok(c, user)
}

func changePassword(c echo.Context) error {
	var payload passwordPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}
	err := appContext(c).Users().ChangePassword(c.Request().Context(), currentUser(c), payload.CurrentPassword, payload.NewPassword)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return fail(c, http.StatusBadRequest, "INVALID_PASSWORD", "Current password is incorrect.", nil)
	}
	if err != nil {
		return internalError(c, "Failed to change password", err)
	}
	return ok(c, map[string]bool{"changed": true})
}
