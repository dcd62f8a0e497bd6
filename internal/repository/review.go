package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
)

type ReviewRepository interface {
	// ByProduct returns reviews with the author's name, newest first
	ByProduct(ctx context.Context, productId int64) ([]domain.ReviewView, error)
	Find(ctx context.Context, productId, userId int64) (*domain.ProductReview, error)
	Save(ctx context.Context, review *domain.ProductReview) error
}

type GormReviewRepository struct {
	db *gorm.DB
}

func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

func (r *GormReviewRepository) ByProduct(ctx context.Context, productId int64) ([]domain.ReviewView, error) {
	var rows []domain.ReviewView
	err := r.db.WithContext(ctx).
		Table("shop_review AS r").
		Select("r.*, COALESCE(u.full_name, '') AS user_name").
		Joins("LEFT JOIN sys_user u ON u.id = r.user_id").
		Where("r.product_id = ?", productId).
		Order("r.created_at DESC, r.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *GormReviewRepository) Find(ctx context.Context, productId, userId int64) (*domain.ProductReview, error) {
	var review domain.ProductReview
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productId, userId).
		First(&review).Error
	if err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

func (r *GormReviewRepository) Save(ctx context.Context, review *domain.ProductReview) error {
	return r.db.WithContext(ctx).Save(review).Error
}
