package shop

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
)

// VoucherEvaluator checks voucher codes. A missing code and an inactive or
// expired one are reported the same way.
type VoucherEvaluator struct {
	vouchers repository.VoucherRepository
}

func NewVoucherEvaluator(vouchers repository.VoucherRepository) *VoucherEvaluator {
	return &VoucherEvaluator{vouchers: vouchers}
}

func (e *VoucherEvaluator) Evaluate(ctx context.Context, code string, now time.Time) (*domain.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidVoucher
	}
	v, err := e.vouchers.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidVoucher
	} else if err != nil {
		return nil, err
	}
	if !v.Redeemable(now) {
		return nil, ErrInvalidVoucher
	}
	return v, nil
}

// SweepExpired deactivates vouchers whose window has closed.
func (e *VoucherEvaluator) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return e.vouchers.DeactivateExpired(ctx, now)
}
