package shopapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/shop"
	"github.com/talkincode/webshop/internal/webserver"
)

type placeOrderPayload struct {
	ShippingAddress string `json:"shipping_address"`
	VoucherCode     string `json:"voucher_code"`
}

func registerOrderRoutes() {
	webserver.UserGET("/checkout", checkout)
	webserver.UserPOST("/orders", placeOrder)
	webserver.UserGET("/orders", listOrders)
	webserver.UserGET("/orders/:id", getOrder)
	webserver.UserPOST("/orders/:id/pay", payOrder)
	webserver.UserPOST("/orders/:id/cancel", cancelOrder)
}

func orderError(c echo.Context, err error) error {
	var stockErr *shop.InsufficientStockError
	switch {
	case errors.Is(err, shop.ErrInvalidShippingAddress):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Shipping address is required and must not exceed 200 characters.",
			map[string]string{"shipping_address": "required,max=200"})
	case errors.Is(err, shop.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "EMPTY_CART", "Your cart is empty.", nil)
	case errors.Is(err, shop.ErrInvalidVoucher):
		return fail(c, http.StatusBadRequest, "INVALID_VOUCHER", "Invalid or expired voucher code.", nil)
	case errors.As(err, &stockErr):
		return fail(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", stockErr.Error(),
			map[string]interface{}{"product_id": stockErr.ProductId, "available": stockErr.Available, "requested": stockErr.Requested})
	case errors.Is(err, shop.ErrOrderNotFound):
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	case errors.Is(err, shop.ErrOrderNotCancelable):
		return fail(c, http.StatusConflict, "ORDER_NOT_CANCELABLE", "Order can no longer be canceled.", nil)
	case errors.Is(err, shop.ErrOrderNotPayable):
		return fail(c, http.StatusConflict, "ORDER_NOT_PAYABLE", "Order can no longer be paid.", nil)
	}
	return internalError(c, "Order operation failed", err)
}

// checkout previews the order; an invalid voucher is reported in the
// summary message instead of failing.
func checkout(c echo.Context) error {
	summary, err := appContext(c).Orders().Checkout(c.Request().Context(), currentUser(c), strings.TrimSpace(c.QueryParam("voucher")))
	if err != nil {
		return orderError(c, err)
	}
	if summary.ShippingAddress == "" {
		if user, err := appContext(c).Users().GetByID(c.Request().Context(), currentUser(c)); err == nil {
			summary.ShippingAddress = user.Address
		}
	}
	return ok(c, summary)
}

func placeOrder(c echo.Context) error {
	var payload placeOrderPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}
	order, err := appContext(c).Orders().PlaceOrder(c.Request().Context(), currentUser(c), payload.ShippingAddress, payload.VoucherCode)
	if err != nil {
		return orderError(c, err)
	}
	return ok(c, order)
}

func listOrders(c echo.Context) error {
	orders, err := appContext(c).Orders().ListOrders(c.Request().Context(), currentUser(c))
	if err != nil {
		return internalError(c, "Failed to query orders", err)
	}
	return ok(c, orders)
}

func getOrder(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	order, err := appContext(c).Orders().GetOrder(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return orderError(c, err)
	}
	return ok(c, order)
}

// payOrder is the stubbed payment step.
func payOrder(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	ctx := c.Request().Context()
	if err := appContext(c).Orders().PayOrder(ctx, currentUser(c), id); err != nil {
		return orderError(c, err)
	}
	return getOrder(c)
}

func cancelOrder(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	if err := appContext(c).Orders().CancelOrder(c.Request().Context(), currentUser(c), id); err != nil {
		return orderError(c, err)
	}
	return getOrder(c)
}
