package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
)

type ChatRepository interface {
	// ByProduct returns the product's thread, newest first
	ByProduct(ctx context.Context, productId int64) ([]domain.ChatMessageView, error)
	Create(ctx context.Context, msg *domain.ProductChatMessage) error

	// LatestPerProduct returns the most recent message of every product thread
	LatestPerProduct(ctx context.Context) ([]domain.ChatMessageView, error)
}

type GormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) view(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("shop_chat_message AS m").
		Select("m.*, COALESCE(u.full_name, '') AS user_name, COALESCE(p.name, '') AS product_name").
		Joins("LEFT JOIN sys_user u ON u.id = m.user_id").
		Joins("LEFT JOIN shop_product p ON p.id = m.product_id")
}

func (r *GormChatRepository) ByProduct(ctx context.Context, productId int64) ([]domain.ChatMessageView, error) {
	var rows []domain.ChatMessageView
	err := r.view(ctx).
		Where("m.product_id = ?", productId).
		Order("m.created_at DESC, m.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *GormChatRepository) Create(ctx context.Context, msg *domain.ProductChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *GormChatRepository) LatestPerProduct(ctx context.Context) ([]domain.ChatMessageView, error) {
	latest := r.db.WithContext(ctx).
		Model(&domain.ProductChatMessage{}).
		Select("MAX(id)").
		Group("product_id")

	var rows []domain.ChatMessageView
	err := r.view(ctx).
		Where("m.id IN (?)", latest).
		Order("m.created_at DESC, m.id DESC").
		Scan(&rows).Error
	return rows, err
}
