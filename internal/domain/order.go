package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPlaced    = "Placed"
	OrderStatusPaid      = "Paid"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
	OrderStatusCanceled  = "Canceled"

	PaymentStatusUnpaid = "Unpaid"
	PaymentStatusPaid   = "Paid"
)

// CartItem is a per-user cart line. Price is a snapshot taken when the line
// was last added to.
type CartItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId    int64           `gorm:"uniqueIndex:idx_cart_user_product" json:"user_id,string"`
	ProductId int64           `gorm:"uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "shop_cart_item"
}

// CartLine is a cart item joined with the current product state.
type CartLine struct {
	CartItem
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image"`
	ProductStock int    `json:"product_stock"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Voucher struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code               string          `gorm:"size:20;index" json:"code"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Voucher) TableName() string {
	return "shop_voucher"
}

// Redeemable reports whether the voucher is active and now lies inside its window.
func (v Voucher) Redeemable(now time.Time) bool {
	return v.IsActive && !now.Before(v.StartDate) && !now.After(v.EndDate)
}

// DiscountFor returns subtotal * percentage / 100 rounded to cents.
func (v Voucher) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(v.DiscountPercentage).Div(decimal.NewFromInt(100)).Round(2)
}

// Order is immutable once placed except for Status and PaymentStatus.
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId          int64           `gorm:"index" json:"user_id,string"`
	OrderDate       time.Time       `gorm:"index" json:"order_date"`
	Status          string          `gorm:"size:20;index" json:"status"`
	PaymentStatus   string          `gorm:"size:20" json:"payment_status"`
	ShippingAddress string          `gorm:"size:200" json:"shipping_address"`
	VoucherCode     string          `gorm:"size:20" json:"voucher_code,omitempty"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Discount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Items           []OrderItem     `gorm:"foreignKey:OrderId;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "shop_order"
}

// Total is max(0, subtotal - discount).
func (o Order) Total() decimal.Decimal {
	return OrderTotal(o.Subtotal, o.Discount)
}

// OrderTotal is max(0, subtotal - discount).
func OrderTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// IsTerminal reports whether the order can no longer be canceled.
func (o Order) IsTerminal() bool {
	return o.Status == OrderStatusCanceled || o.Status == OrderStatusDelivered
}

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		Total decimal.Decimal `json:"total"`
	}{alias(o), o.Total()})
}

// OrderItem is a snapshot of the product at placement time. It carries no
// foreign key to the product so it survives product deletion.
type OrderItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderId     int64           `gorm:"index" json:"order_id"`
	ProductId   int64           `gorm:"index" json:"product_id"`
	ProductName string          `gorm:"size:100" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity    int             `json:"quantity"`
}

func (OrderItem) TableName() string {
	return "shop_order_item"
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderRow is an order joined with the owner's email for back-office lists.
type OrderRow struct {
	ID            int64           `json:"id" csv:"id"`
	UserId        int64           `json:"user_id,string" csv:"user_id"`
	UserEmail     string          `json:"user_email" csv:"user_email"`
	OrderDate     time.Time       `json:"order_date" csv:"order_date"`
	Status        string          `json:"status" csv:"status"`
	PaymentStatus string          `json:"payment_status" csv:"payment_status"`
	VoucherCode   string          `json:"voucher_code" csv:"voucher_code"`
	Subtotal      decimal.Decimal `json:"subtotal" csv:"subtotal"`
	Discount      decimal.Decimal `json:"discount" csv:"discount"`
	Total         decimal.Decimal `gorm:"-" json:"total" csv:"total"`
}
