package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
)

// OrderFilter narrows back-office order listings
type OrderFilter struct {
	Status string
	UserId int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	// Create inserts the order together with its items
	Create(ctx context.Context, order *domain.Order) error

	// GetByID loads an order with its items
	GetByID(ctx context.Context, id int64) (*domain.Order, error)

	// GetForUser loads an order with its items only when userId owns it
	GetForUser(ctx context.Context, userId, id int64) (*domain.Order, error)

	ListByUser(ctx context.Context, userId int64) ([]domain.Order, error)

	// List pages through orders joined with the owner's email, newest first
	List(ctx context.Context, filter OrderFilter, page, pageSize int) ([]domain.OrderRow, int64, error)

	// TransitionStatus moves the order to status unless it is currently in
	// one of the excluded states. It returns false when nothing changed.
	TransitionStatus(ctx context.Context, id int64, updates map[string]interface{}, excluded ...string) (bool, error)
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrderRepository) GetForUser(ctx context.Context, userId, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND user_id = ?", id, userId).
		First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userId int64) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("order_date DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *GormOrderRepository) List(ctx context.Context, filter OrderFilter, page, pageSize int) ([]domain.OrderRow, int64, error) {
	query := r.db.WithContext(ctx).Table("shop_order AS o")
	if filter.Status != "" {
		query = query.Where("o.status = ?", filter.Status)
	}
	if filter.UserId > 0 {
		query = query.Where("o.user_id = ?", filter.UserId)
	}
	if filter.From != nil {
		query = query.Where("o.order_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("o.order_date < ?", *filter.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := query.
		Select("o.id, o.user_id, COALESCE(u.email, '') AS user_email, o.order_date, o.status, o.payment_status, o.voucher_code, o.subtotal, o.discount").
		Joins("LEFT JOIN sys_user u ON u.id = o.user_id").
		Order("o.order_date DESC, o.id DESC")
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var rows []domain.OrderRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	for i := range rows {
		rows[i].Total = domain.OrderTotal(rows[i].Subtotal, rows[i].Discount)
	}
	return rows, total, nil
}

func (r *GormOrderRepository) TransitionStatus(ctx context.Context, id int64, updates map[string]interface{}, excluded ...string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id)
	if len(excluded) > 0 {
		query = query.Where("status NOT IN ?", excluded)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
