package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/webserver"
)

// registerUserRoutes registers customer account routes
func registerUserRoutes() {
	webserver.ApiGET("/users", listUsers)
	webserver.ApiGET("/users/:id", getUser)
	webserver.ApiPOST("/users/:id/lock", lockUser)
	webserver.ApiPOST("/users/:id/unlock", unlockUser)
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.User{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, q, "email", "full_name")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}

	var users []domain.User
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	roles, err := GetAppContext(c).Users().RolesFor(c.Request().Context(), ids)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query roles", err.Error())
	}

	now := time.Now()
	rows := make([]domain.UserRow, len(users))
	for i, u := range users {
		rows[i] = domain.UserRow{User: u, Roles: roles[u.ID], IsLocked: u.IsLockedOut(now)}
	}
	return paged(c, rows, total, page, pageSize)
}

func getUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}

	users := GetAppContext(c).Users()
	user, err := users.GetByID(c.Request().Context(), id)
	if errors.Is(err, auth.ErrUserNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	roles, err := users.RolesOf(c.Request().Context(), id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query roles", err.Error())
	}

	return ok(c, domain.UserRow{User: *user, Roles: roles, IsLocked: user.IsLockedOut(time.Now())})
}

func lockUser(c echo.Context) error {
	return setLockout(c, true)
}

func unlockUser(c echo.Context) error {
	return setLockout(c, false)
}

func setLockout(c echo.Context, locked bool) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}

	err = GetAppContext(c).Users().SetLockout(c.Request().Context(), webserver.CurrentUserID(c), id, locked)
	switch {
	case errors.Is(err, auth.ErrSelfLock):
		return fail(c, http.StatusBadRequest, "SELF_LOCK", "You cannot lock your own account.", nil)
	case errors.Is(err, auth.ErrUserNotFound):
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user", err.Error())
	}

	return ok(c, map[string]interface{}{"id": id, "is_locked": locked})
}
