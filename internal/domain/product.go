package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Stock never goes negative; it is decremented by
// order placement and restored by cancellation.
type Product struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string           `gorm:"size:100;index" json:"name"`
	Price       decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	OldPrice    *decimal.Decimal `gorm:"type:decimal(12,2)" json:"old_price,omitempty"`
	Stock       int              `gorm:"not null;default:0" json:"stock"`
	Description string           `gorm:"size:1000" json:"description"`
	ImagePath   string           `gorm:"size:1024" json:"image_path"`
	Featured    bool             `gorm:"index" json:"featured"`
	CategoryId  int64            `gorm:"index" json:"category_id"`
	BrandId     int64            `gorm:"index" json:"brand_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Product) TableName() string {
	return "shop_product"
}

// ProductSummary is a product joined with its category, brand and review stats.
type ProductSummary struct {
	Product
	CategoryName string  `json:"category_name"`
	BrandName    string  `json:"brand_name"`
	ReviewCount  int64   `json:"review_count"`
	AvgRating    float64 `json:"avg_rating"`
}

type Category struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;index" json:"name"`
	Description string    `gorm:"size:1000" json:"description"`
	ImagePath   string    `gorm:"size:1024" json:"image_path"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "shop_category"
}

type Brand struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;index" json:"name"`
	Description string    `gorm:"size:1000" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Brand) TableName() string {
	return "shop_brand"
}

// Banner is a home page slide; the image is required.
type Banner struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ImagePath string    `gorm:"size:1024;not null" json:"image_path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Banner) TableName() string {
	return "shop_banner"
}

// ProductReview holds at most one review per user and product.
type ProductReview struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductId int64     `gorm:"index" json:"product_id"`
	UserId    int64     `gorm:"index" json:"user_id,string"`
	Comment   string    `gorm:"size:500" json:"comment"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProductReview) TableName() string {
	return "shop_review"
}

type ReviewView struct {
	ProductReview
	UserName string `json:"user_name"`
}

type ProductChatMessage struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductId    int64     `gorm:"index" json:"product_id"`
	UserId       int64     `gorm:"index" json:"user_id,string"`
	Message      string    `gorm:"size:500" json:"message"`
	IsAdminReply bool      `json:"is_admin_reply"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (ProductChatMessage) TableName() string {
	return "shop_chat_message"
}

type ChatMessageView struct {
	ProductChatMessage
	UserName    string `json:"user_name"`
	ProductName string `json:"product_name"`
}
