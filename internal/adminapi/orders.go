package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/webshop/internal/repository"
	"github.com/talkincode/webshop/internal/shop"
	"github.com/talkincode/webshop/internal/webserver"
)

type orderStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

// registerOrderRoutes registers back-office order routes
func registerOrderRoutes() {
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/export", exportOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPUT("/orders/:id/status", updateOrderStatus)
}

// parseOrderFilter reads status, user_id, from and to. Dates accept any
// dateparse layout; "to" is exclusive.
func parseOrderFilter(c echo.Context) (repository.OrderFilter, error) {
	filter := repository.OrderFilter{Status: strings.TrimSpace(c.QueryParam("status"))}
	if s := c.QueryParam("user_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return filter, errors.New("user_id")
		}
		filter.UserId = id
	}
	if s := strings.TrimSpace(c.QueryParam("from")); s != "" {
		t, err := dateparse.ParseIn(s, time.Local)
		if err != nil {
			return filter, errors.New("from")
		}
		filter.From = &t
	}
	if s := strings.TrimSpace(c.QueryParam("to")); s != "" {
		t, err := dateparse.ParseIn(s, time.Local)
		if err != nil {
			return filter, errors.New("to")
		}
		filter.To = &t
	}
	return filter, nil
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter, err := parseOrderFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", "Invalid order filter", map[string]string{err.Error(): "invalid"})
	}

	rows, total, err := GetAppContext(c).Store().Orders.List(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}

	ctx := c.Request().Context()
	appCtx := GetAppContext(c)
	order, err := appCtx.Store().Orders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query order", err.Error())
	}

	result := map[string]interface{}{"order": order}
	if user, err := appCtx.Users().GetByID(ctx, order.UserId); err == nil {
		result["customer"] = user
	}
	return ok(c, result)
}

// updateOrderStatus accepts Shipped, Canceled or Delivered from any state.
// Other values leave the order untouched.
func updateOrderStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}

	var payload orderStatusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	updated, err := GetAppContext(c).Orders().UpdateStatus(c.Request().Context(), id, strings.TrimSpace(payload.Status))
	if errors.Is(err, shop.ErrOrderNotFound) {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order", err.Error())
	}

	return ok(c, map[string]interface{}{"id": id, "status": payload.Status, "updated": updated})
}

// exportOrders writes every order matching the filter as CSV.
func exportOrders(c echo.Context) error {
	filter, err := parseOrderFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", "Invalid order filter", map[string]string{err.Error(): "invalid"})
	}

	rows, _, err := GetAppContext(c).Store().Orders.List(c.Request().Context(), filter, 0, 0)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		zap.L().Error("order export failed", zap.Error(err), zap.String("namespace", "admin"))
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export orders", err.Error())
	}

	filename := "orders-" + time.Now().Format("20060102150405") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
