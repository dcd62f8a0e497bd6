// Package shopapi serves the storefront: catalog browsing, reviews, product
// chat, cart, checkout, orders and the customer profile.
package shopapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/webserver"
)

// Init registers all storefront routes. webserver.Init must have run first.
func Init() {
	registerAuthRoutes()
	registerCatalogRoutes()
	registerCartRoutes()
	registerOrderRoutes()
	registerProfileRoutes()
}

func appContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func currentUser(c echo.Context) int64 {
	return webserver.CurrentUserID(c)
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func internalError(c echo.Context, message string, err error) error {
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, err.Error())
}

// bind decodes and validates the request body. It reports false once an
// error response is written.
func bind(c echo.Context, payload interface{}) (bool, error) {
	if err := c.Bind(payload); err != nil {
		return false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters", nil)
	}
	if err := c.Validate(payload); err != nil {
		return false, webserver.HandleValidationError(c, err)
	}
	return true, nil
}
