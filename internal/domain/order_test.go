package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTotalIsNeverNegative(t *testing.T) {
	o := Order{Subtotal: decimal.NewFromInt(10), Discount: decimal.NewFromInt(15)}
	assert.True(t, o.Total().Equal(decimal.Zero))

	o.Discount = decimal.NewFromInt(2)
	assert.True(t, o.Total().Equal(decimal.NewFromInt(8)))
}

func TestOrderJSONCarriesTotal(t *testing.T) {
	o := Order{ID: 1, Subtotal: decimal.NewFromInt(20), Discount: decimal.NewFromInt(2), Status: OrderStatusPlaced}
	data, err := json.Marshal(o)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "18", out["total"])
	assert.Equal(t, "Placed", out["status"])
}

func TestVoucherRedeemableWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	v := Voucher{
		IsActive:  true,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	}
	assert.True(t, v.Redeemable(now))
	assert.True(t, v.Redeemable(v.StartDate))
	assert.True(t, v.Redeemable(v.EndDate))
	assert.False(t, v.Redeemable(v.EndDate.Add(time.Second)))

	v.IsActive = false
	assert.False(t, v.Redeemable(now))
}

func TestVoucherDiscountFor(t *testing.T) {
	v := Voucher{DiscountPercentage: decimal.NewFromInt(10)}
	assert.Equal(t, "2", v.DiscountFor(decimal.NewFromInt(20)).String())

	v.DiscountPercentage = decimal.NewFromInt(100)
	assert.Equal(t, "20", v.DiscountFor(decimal.NewFromInt(20)).String())
}

func TestUserLockout(t *testing.T) {
	now := time.Now()
	u := User{}
	assert.False(t, u.IsLockedOut(now))

	end := LockoutForever
	u.LockoutEnd = &end
	assert.True(t, u.IsLockedOut(now))
}
