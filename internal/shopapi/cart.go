package shopapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/shop"
	"github.com/talkincode/webshop/internal/webserver"
)

type addToCartPayload struct {
	ProductId int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

type updateCartPayload struct {
	Quantity int `json:"quantity"`
}

type cartView struct {
	Lines    []domain.CartLine `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

func registerCartRoutes() {
	webserver.UserGET("/cart", listCart)
	webserver.UserPOST("/cart", addToCart)
	webserver.UserPUT("/cart/:id", updateCartItem)
	webserver.UserDELETE("/cart/:id", removeCartItem)
}

// cartError maps cart failures to responses.
func cartError(c echo.Context, err error) error {
	var stockErr *shop.InsufficientStockError
	switch {
	case errors.Is(err, shop.ErrInvalidQuantity):
		return fail(c, http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be greater than 0.", map[string]string{"quantity": "gt=0"})
	case errors.As(err, &stockErr):
		return fail(c, http.StatusBadRequest, "INSUFFICIENT_STOCK",
			fmt.Sprintf("Only %d items available in stock.", stockErr.Available),
			map[string]interface{}{"product_id": stockErr.ProductId, "available": stockErr.Available})
	case errors.Is(err, shop.ErrProductNotFound):
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	case errors.Is(err, shop.ErrCartItemNotFound):
		return fail(c, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "Cart item not found", nil)
	}
	return internalError(c, "Failed to update cart", err)
}

func listCart(c echo.Context) error {
	lines, err := appContext(c).Carts().Lines(c.Request().Context(), currentUser(c))
	if err != nil {
		return internalError(c, "Failed to query cart", err)
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	return ok(c, cartView{Lines: lines, Subtotal: subtotal})
}

func addToCart(c echo.Context) error {
	var payload addToCartPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}
	item, err := appContext(c).Carts().AddToCart(c.Request().Context(), currentUser(c), payload.ProductId, payload.Quantity)
	if err != nil {
		return cartError(c, err)
	}
	return ok(c, item)
}

// updateCartItem overwrites the quantity; zero or less removes the line.
func updateCartItem(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid cart item ID", nil)
	}
	var payload updateCartPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}
	if err := appContext(c).Carts().UpdateCartItem(c.Request().Context(), currentUser(c), id, payload.Quantity); err != nil {
		return cartError(c, err)
	}
	return listCart(c)
}

func removeCartItem(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid cart item ID", nil)
	}
	if err := appContext(c).Carts().RemoveCartItem(c.Request().Context(), currentUser(c), id); err != nil {
		return cartError(c, err)
	}
	return listCart(c)
}
