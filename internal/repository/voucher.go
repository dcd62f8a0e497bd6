package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
)

type VoucherRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)

	// DeactivateExpired clears the active flag of vouchers whose window ended before now
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormVoucherRepository struct {
	db *gorm.DB
}

func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

func (r *GormVoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	var v domain.Voucher
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (r *GormVoucherRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Voucher{}).
		Where("is_active = ? AND end_date < ?", true, now).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now})
	return res.RowsAffected, res.Error
}
