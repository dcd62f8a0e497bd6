package shop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/webshop/internal/dbtest"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
)

func newCartFixture(t *testing.T, stock int) (*CartService, *repository.Store, *domain.Product) {
	t.Helper()
	db := dbtest.Open(t)
	p := &domain.Product{Name: "Lamp", Price: decimal.RequireFromString("12.50"), Stock: stock}
	require.NoError(t, db.Create(p).Error)
	store := repository.NewStore(db)
	return NewCartService(store), store, p
}

func TestAddToCartCreatesAndIncrements(t *testing.T) {
	svc, store, p := newCartFixture(t, 5)
	ctx := context.Background()

	item, err := svc.AddToCart(ctx, alice, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	// price snapshot refreshes on every add
	require.NoError(t, store.DB().Model(p).Update("price", "15.00").Error)
	item, err = svc.AddToCart(ctx, alice, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("15.00")))

	lines, err := svc.Lines(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestAddToCartRejectsBadQuantity(t *testing.T) {
	svc, _, p := newCartFixture(t, 5)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, alice, p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddToCart(ctx, alice, p.ID, 4)
	require.NoError(t, err)

	// existing quantity counts against stock
	_, err = svc.AddToCart(ctx, alice, p.ID, 2)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 5, stockErr.Available)

	_, err = svc.AddToCart(ctx, alice, p.ID+100, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateCartItem(t *testing.T) {
	svc, _, p := newCartFixture(t, 5)
	ctx := context.Background()

	item, err := svc.AddToCart(ctx, alice, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateCartItem(ctx, alice, item.ID, 4))
	lines, _ := svc.Lines(ctx, alice)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)

	var stockErr *InsufficientStockError
	assert.True(t, errors.As(svc.UpdateCartItem(ctx, alice, item.ID, 6), &stockErr))

	// another user's line is invisible
	assert.ErrorIs(t, svc.UpdateCartItem(ctx, bob, item.ID, 1), ErrCartItemNotFound)

	require.NoError(t, svc.UpdateCartItem(ctx, alice, item.ID, 0))
	lines, _ = svc.Lines(ctx, alice)
	assert.Empty(t, lines)
}

func TestRemoveCartItemIsIdempotent(t *testing.T) {
	svc, _, p := newCartFixture(t, 5)
	ctx := context.Background()

	item, err := svc.AddToCart(ctx, alice, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveCartItem(ctx, alice, item.ID))
	require.NoError(t, svc.RemoveCartItem(ctx, alice, item.ID))
}

func TestPruneStale(t *testing.T) {
	svc, store, p := newCartFixture(t, 5)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, alice, p.ID, 1)
	require.NoError(t, err)
	old := time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(t, store.DB().Model(&domain.CartItem{}).Where("user_id = ?", alice).UpdateColumn("updated_at", old).Error)
	_, err = svc.AddToCart(ctx, bob, p.ID, 1)
	require.NoError(t, err)

	n, err := svc.PruneStale(ctx, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestVoucherEvaluator(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Now()
	require.NoError(t, db.Create(&domain.Voucher{Code: "SAVE10", DiscountPercentage: decimal.NewFromInt(10),
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), IsActive: true}).Error)
	eval := NewVoucherEvaluator(repository.NewGormVoucherRepository(db))
	ctx := context.Background()

	v, err := eval.Evaluate(ctx, "SAVE10", now)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", v.Code)

	_, err = eval.Evaluate(ctx, "SAVE10", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidVoucher)

	_, err = eval.Evaluate(ctx, "save10", now)
	assert.ErrorIs(t, err, ErrInvalidVoucher)

	_, err = eval.Evaluate(ctx, "", now)
	assert.ErrorIs(t, err, ErrInvalidVoucher)
}
