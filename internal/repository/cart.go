package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
)

// CartRepository handles per-user cart lines
type CartRepository interface {
	// Lines returns the user's cart joined with current product name, image and stock
	Lines(ctx context.Context, userId int64) ([]domain.CartLine, error)

	Find(ctx context.Context, userId, productId int64) (*domain.CartItem, error)
	GetByID(ctx context.Context, userId, id int64) (*domain.CartItem, error)
	Save(ctx context.Context, item *domain.CartItem) error

	// Delete is scoped to the owner and idempotent
	Delete(ctx context.Context, userId, id int64) error
	DeleteByUser(ctx context.Context, userId int64) error

	// DeleteStale removes lines untouched since before
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) Lines(ctx context.Context, userId int64) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	err := r.db.WithContext(ctx).
		Table("shop_cart_item AS ci").
		Select("ci.*, p.name AS product_name, p.image_path AS product_image, p.stock AS product_stock").
		Joins("JOIN shop_product p ON p.id = ci.product_id").
		Where("ci.user_id = ?", userId).
		Order("ci.id ASC").
		Scan(&lines).Error
	return lines, err
}

func (r *GormCartRepository) Find(ctx context.Context, userId, productId int64) (*domain.CartItem, error) {
	var item domain.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userId, productId).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormCartRepository) GetByID(ctx context.Context, userId, id int64) (*domain.CartItem, error) {
	var item domain.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userId).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormCartRepository) Save(ctx context.Context, item *domain.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *GormCartRepository) Delete(ctx context.Context, userId, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userId).
		Delete(&domain.CartItem{}).Error
}

func (r *GormCartRepository) DeleteByUser(ctx context.Context, userId int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&domain.CartItem{}).Error
}

func (r *GormCartRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", before).Delete(&domain.CartItem{})
	return res.RowsAffected, res.Error
}
