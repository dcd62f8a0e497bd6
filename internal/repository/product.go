package repository

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
)

// ProductFilter narrows product listings. Zero values mean no constraint.
type ProductFilter struct {
	Query      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryId int64
	BrandId    int64
}

// ProductRepository handles product reads and stock mutation
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// Summary returns one product joined with category, brand and review stats
	Summary(ctx context.Context, id int64) (*domain.ProductSummary, error)

	// Search pages through products matching the filter, newest first
	Search(ctx context.Context, filter ProductFilter, page, pageSize int) ([]domain.ProductSummary, int64, error)

	Featured(ctx context.Context, limit int) ([]domain.ProductSummary, error)
	Newest(ctx context.Context, limit int) ([]domain.ProductSummary, error)

	// DecrementStock subtracts qty only while stock >= qty. It returns
	// ErrInsufficientStock when no row satisfied the condition.
	DecrementStock(ctx context.Context, id int64, qty int) error

	// IncrementStock adds qty back. It returns ErrNotFound for a missing product.
	IncrementStock(ctx context.Context, id int64, qty int) error

	CountByCategory(ctx context.Context, categoryId int64) (int64, error)
	CountByBrand(ctx context.Context, brandId int64) (int64, error)

	// Delete removes the product together with its reviews, chat messages
	// and cart lines. Order items keep their snapshot.
	Delete(ctx context.Context, id int64) error
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

const productSummaryColumns = `p.*,
	COALESCE(c.name, '') AS category_name,
	COALESCE(b.name, '') AS brand_name,
	(SELECT COUNT(*) FROM shop_review r WHERE r.product_id = p.id) AS review_count,
	(SELECT COALESCE(AVG(r.rating), 0) FROM shop_review r WHERE r.product_id = p.id) AS avg_rating`

func (r *GormProductRepository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("shop_product AS p")
}

func withSummary(q *gorm.DB) *gorm.DB {
	return q.Select(productSummaryColumns).
		Joins("LEFT JOIN shop_category c ON c.id = p.category_id").
		Joins("LEFT JOIN shop_brand b ON b.id = p.brand_id")
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *GormProductRepository) Summary(ctx context.Context, id int64) (*domain.ProductSummary, error) {
	var rows []domain.ProductSummary
	err := withSummary(r.base(ctx)).Where("p.id = ?", id).Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *GormProductRepository) Search(ctx context.Context, filter ProductFilter, page, pageSize int) ([]domain.ProductSummary, int64, error) {
	query := r.base(ctx)
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = likeFilter(query, "p.name", q)
	}
	if filter.MinPrice != nil {
		query = query.Where("p.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("p.price <= ?", *filter.MaxPrice)
	}
	if filter.CategoryId > 0 {
		query = query.Where("p.category_id = ?", filter.CategoryId)
	}
	if filter.BrandId > 0 {
		query = query.Where("p.brand_id = ?", filter.BrandId)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	var rows []domain.ProductSummary
	err := withSummary(query).
		Order("p.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	return rows, total, err
}

func (r *GormProductRepository) Featured(ctx context.Context, limit int) ([]domain.ProductSummary, error) {
	var rows []domain.ProductSummary
	err := withSummary(r.base(ctx)).
		Where("p.featured = ?", true).
		Order("p.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormProductRepository) Newest(ctx context.Context, limit int) ([]domain.ProductSummary, error) {
	var rows []domain.ProductSummary
	err := withSummary(r.base(ctx)).
		Order("p.created_at DESC, p.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormProductRepository) DecrementStock(ctx context.Context, id int64, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *GormProductRepository) IncrementStock(ctx context.Context, id int64, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormProductRepository) CountByCategory(ctx context.Context, categoryId int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("category_id = ?", categoryId).Count(&n).Error
	return n, err
}

func (r *GormProductRepository) CountByBrand(ctx context.Context, brandId int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("brand_id = ?", brandId).Count(&n).Error
	return n, err
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&domain.ProductReview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.ProductChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
