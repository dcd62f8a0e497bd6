package webserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/webshop/internal/apptest"
)

func setup(t *testing.T) (string, string, int64) {
	a := apptest.New(t)
	Init(a)
	ApiGET("/ping", func(c echo.Context) error { return OK(c, "admin") })
	UserGET("/ping", func(c echo.Context) error { return OK(c, CurrentUserID(c)) })
	PublicGET("/public", func(c echo.Context) error { return OK(c, "public") })

	_, adminToken := apptest.Login(t, a, "admin@example.com", true)
	userId, userToken := apptest.Login(t, a, "user@example.com", false)
	return adminToken, userToken, userId
}

func do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, token)
	}
	rec := httptest.NewRecorder()
	Echo().ServeHTTP(rec, req)
	return rec
}

func TestRouteGroups(t *testing.T) {
	adminToken, userToken, _ := setup(t)

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/public", "").Code)

	rec := do(http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/ping", "Bearer garbage").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/ping", userToken).Code)

	rec = do(http.MethodGet, "/api/admin/ping", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/admin/ping", adminToken).Code)
}

func TestLockedAccountIsRejected(t *testing.T) {
	_, userToken, userId := setup(t)
	appCtx := server.appCtx
	require.NoError(t, appCtx.Users().SetLockout(context.Background(), 0, userId, true))

	rec := do(http.MethodGet, "/api/ping", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACCOUNT_LOCKED")
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	setup(t)
	rec := do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	type payload struct {
		Code string `json:"code" validate:"required,min=3"`
	}
	err := NewValidator().Validate(&payload{Code: "a"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"code": "min=3"}, ValidationDetails(err))
}
