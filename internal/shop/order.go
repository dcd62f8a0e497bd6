package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
)

const (
	TopicOrderPlaced   = "order:placed"
	TopicOrderCanceled = "order:canceled"
	TopicOrderStatus   = "order:status"

	maxShippingAddress = 200
)

// Publisher is satisfied by EventBus.Bus.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// OrderEvent is published after an order transaction commits.
type OrderEvent struct {
	OrderId int64
	UserId  int64
	Status  string
	Total   decimal.Decimal
}

// CheckoutSummary previews what PlaceOrder would create.
type CheckoutSummary struct {
	Lines           []domain.CartLine `json:"lines"`
	ShippingAddress string            `json:"shipping_address"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Discount        decimal.Decimal   `json:"discount"`
	Total           decimal.Decimal   `json:"total"`
	VoucherCode     string            `json:"voucher_code,omitempty"`
	VoucherMessage  string            `json:"voucher_message,omitempty"`
}

type OrderService struct {
	store    *repository.Store
	vouchers *VoucherEvaluator
	bus      Publisher
	now      func() time.Time
}

func NewOrderService(store *repository.Store, bus Publisher) *OrderService {
	return &OrderService{
		store:    store,
		vouchers: NewVoucherEvaluator(store.Vouchers),
		bus:      bus,
		now:      time.Now,
	}
}

func subtotalOf(lines []domain.CartLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	return subtotal
}

// Checkout previews the cart. An unusable voucher code is reported through
// VoucherMessage instead of an error.
func (s *OrderService) Checkout(ctx context.Context, userId int64, voucherCode string) (*CheckoutSummary, error) {
	lines, err := s.store.Carts.Lines(ctx, userId)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	summary := &CheckoutSummary{
		Lines:    lines,
		Subtotal: subtotalOf(lines),
		Discount: decimal.Zero,
	}
	if code := strings.TrimSpace(voucherCode); code != "" {
		summary.VoucherCode = code
		v, err := s.vouchers.Evaluate(ctx, code, s.now())
		switch {
		case errors.Is(err, ErrInvalidVoucher):
			summary.VoucherMessage = "Invalid or expired voucher code."
		case err != nil:
			return nil, err
		default:
			summary.Discount = v.DiscountFor(summary.Subtotal)
			summary.VoucherMessage = fmt.Sprintf("Voucher %s applied. Discount: %s%%", v.Code, v.DiscountPercentage.String())
		}
	}
	summary.Total = domain.OrderTotal(summary.Subtotal, summary.Discount)
	return summary, nil
}

// PlaceOrder converts the user's cart into an order. Creating the order,
// decrementing stock and clearing the cart happen in one transaction; stock
// is decremented conditionally so a concurrent checkout cannot oversell.
func (s *OrderService) PlaceOrder(ctx context.Context, userId int64, shippingAddress, voucherCode string) (*domain.Order, error) {
	address := strings.TrimSpace(shippingAddress)
	if address == "" || utf8.RuneCountInString(address) > maxShippingAddress {
		return nil, ErrInvalidShippingAddress
	}

	lines, err := s.store.Carts.Lines(ctx, userId)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	subtotal := subtotalOf(lines)
	discount := decimal.Zero
	code := strings.TrimSpace(voucherCode)
	if code != "" {
		v, err := s.vouchers.Evaluate(ctx, code, now)
		if err != nil {
			return nil, err
		}
		code = v.Code
		discount = v.DiscountFor(subtotal)
	}

	for _, l := range lines {
		if l.ProductStock < l.Quantity {
			return nil, &InsufficientStockError{
				ProductId:   l.ProductId,
				ProductName: l.ProductName,
				Available:   l.ProductStock,
				Requested:   l.Quantity,
			}
		}
	}

	order := &domain.Order{
		UserId:          userId,
		OrderDate:       now,
		Status:          domain.OrderStatusPlaced,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		ShippingAddress: address,
		VoucherCode:     code,
		Subtotal:        subtotal,
		Discount:        discount,
		Items:           make([]domain.OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		order.Items = append(order.Items, domain.OrderItem{
			ProductId:   l.ProductId,
			ProductName: l.ProductName,
			Price:       l.Price,
			Quantity:    l.Quantity,
		})
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		for _, l := range lines {
			err := tx.Products.DecrementStock(ctx, l.ProductId, l.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				return &InsufficientStockError{
					ProductId:   l.ProductId,
					ProductName: l.ProductName,
					Requested:   l.Quantity,
				}
			} else if err != nil {
				return err
			}
		}
		return tx.Carts.DeleteByUser(ctx, userId)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userId),
		zap.String("total", order.Total().String()),
		zap.String("namespace", "shop"))
	s.publish(TopicOrderPlaced, order)
	return order, nil
}

// CancelOrder restores stock for every line and marks the order Canceled in
// one transaction. Canceled and Delivered orders are rejected so stock is
// never restored twice.
func (s *OrderService) CancelOrder(ctx context.Context, userId, orderId int64) error {
	order, err := s.store.Orders.GetForUser(ctx, userId, orderId)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrderNotFound
	} else if err != nil {
		return err
	}
	if order.IsTerminal() {
		return ErrOrderNotCancelable
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		changed, err := tx.Orders.TransitionStatus(ctx, order.ID,
			map[string]interface{}{"status": domain.OrderStatusCanceled, "updated_at": s.now()},
			domain.OrderStatusCanceled, domain.OrderStatusDelivered)
		if err != nil {
			return err
		}
		if !changed {
			return ErrOrderNotCancelable
		}
		for _, item := range order.Items {
			err := tx.Products.IncrementStock(ctx, item.ProductId, item.Quantity)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("restore stock for %q: %w", item.ProductName, ErrProductNotFound)
			} else if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.Status = domain.OrderStatusCanceled
	zap.L().Info("order canceled",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userId),
		zap.String("namespace", "shop"))
	s.publish(TopicOrderCanceled, order)
	return nil
}

// PayOrder is the stubbed payment step: it flags a Placed order as paid.
func (s *OrderService) PayOrder(ctx context.Context, userId, orderId int64) error {
	order, err := s.store.Orders.GetForUser(ctx, userId, orderId)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrderNotFound
	} else if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPlaced {
		return ErrOrderNotPayable
	}
	changed, err := s.store.Orders.TransitionStatus(ctx, order.ID, map[string]interface{}{
		"status":         domain.OrderStatusPaid,
		"payment_status": domain.PaymentStatusPaid,
		"updated_at":     s.now(),
	}, domain.OrderStatusPaid, domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCanceled)
	if err != nil {
		return err
	}
	if !changed {
		return ErrOrderNotPayable
	}
	order.Status = domain.OrderStatusPaid
	s.publish(TopicOrderStatus, order)
	return nil
}

func (s *OrderService) ListOrders(ctx context.Context, userId int64) ([]domain.Order, error) {
	return s.store.Orders.ListByUser(ctx, userId)
}

func (s *OrderService) GetOrder(ctx context.Context, userId, orderId int64) (*domain.Order, error) {
	order, err := s.store.Orders.GetForUser(ctx, userId, orderId)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// AdminStatuses are the only values the back-office may set.
var AdminStatuses = []string{domain.OrderStatusShipped, domain.OrderStatusCanceled, domain.OrderStatusDelivered}

func IsAdminStatus(status string) bool {
	for _, s := range AdminStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// UpdateStatus sets a back-office status. Values outside AdminStatuses are
// ignored and reported as unchanged. No transition table is enforced and
// stock is not touched.
func (s *OrderService) UpdateStatus(ctx context.Context, orderId int64, status string) (bool, error) {
	order, err := s.store.Orders.GetByID(ctx, orderId)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrOrderNotFound
	} else if err != nil {
		return false, err
	}
	if !IsAdminStatus(status) {
		return false, nil
	}
	if _, err := s.store.Orders.TransitionStatus(ctx, order.ID, map[string]interface{}{
		"status":     status,
		"updated_at": s.now(),
	}); err != nil {
		return false, err
	}
	order.Status = status
	zap.L().Info("order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("status", status),
		zap.String("namespace", "shop"))
	s.publish(TopicOrderStatus, order)
	return true, nil
}

func (s *OrderService) publish(topic string, order *domain.Order) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, OrderEvent{
		OrderId: order.ID,
		UserId:  order.UserId,
		Status:  order.Status,
		Total:   order.Total(),
	})
}
