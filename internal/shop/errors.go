package shop

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrProductNotFound        = errors.New("product not found")
	ErrCartItemNotFound       = errors.New("cart item not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrEmptyCart              = errors.New("your cart is empty")
	ErrInvalidVoucher         = errors.New("invalid or expired voucher code")
	ErrInvalidShippingAddress = errors.New("shipping address is required and must be at most 200 characters")
	ErrOrderNotCancelable     = errors.New("order can no longer be canceled")
	ErrOrderNotPayable        = errors.New("order can no longer be paid")
)

// InsufficientStockError names the first product whose stock cannot cover
// the requested quantity.
type InsufficientStockError struct {
	ProductId   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %s", e.ProductName)
}
