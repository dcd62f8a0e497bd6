package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/dbtest"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
)

func newCatalog(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewService(repository.NewStore(db)), db
}

func seedProducts(t *testing.T, db *gorm.DB, n int, featured bool) []domain.Product {
	t.Helper()
	var out []domain.Product
	for i := 0; i < n; i++ {
		p := domain.Product{
			Name:     fmt.Sprintf("Item %02d", i),
			Price:    decimal.NewFromInt(int64(i + 1)),
			Stock:    10,
			Featured: featured,
		}
		require.NoError(t, db.Create(&p).Error)
		out = append(out, p)
	}
	return out
}

func TestHomeLimits(t *testing.T) {
	svc, db := newCatalog(t)
	seedProducts(t, db, 8, true)
	for i := 0; i < 8; i++ {
		require.NoError(t, db.Create(&domain.Category{Name: fmt.Sprintf("Cat %d", i)}).Error)
	}
	require.NoError(t, db.Create(&domain.Banner{ImagePath: "/images/a.png"}).Error)

	home, err := svc.Home(context.Background())
	require.NoError(t, err)
	assert.Len(t, home.FeaturedProducts, HomeFeaturedLimit)
	assert.Len(t, home.NewProducts, HomeNewestLimit)
	assert.Len(t, home.Categories, HomeCategoryLimit)
	assert.Len(t, home.Banners, 1)
}

func TestProductsDefaultsToPageSizeFour(t *testing.T) {
	svc, db := newCatalog(t)
	seedProducts(t, db, 6, false)

	page, err := svc.Products(context.Background(), ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Len(t, page.Items, DefaultPageSize)

	page, err = svc.Products(context.Background(), ProductQuery{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestProductDetailsNewestFirst(t *testing.T) {
	svc, db := newCatalog(t)
	p := seedProducts(t, db, 1, false)[0]
	ctx := context.Background()

	base := time.Now()
	svc.now = func() time.Time { return base }
	_, err := svc.SendChatMessage(ctx, 1, p.ID, "first", false)
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(time.Minute) }
	_, err = svc.SendChatMessage(ctx, 2, p.ID, "second", true)
	require.NoError(t, err)

	details, err := svc.ProductDetails(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, details.ChatMessages, 2)
	assert.Equal(t, "second", details.ChatMessages[0].Message)
	assert.True(t, details.ChatMessages[0].IsAdminReply)

	_, err = svc.ProductDetails(ctx, p.ID+100)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddReviewUpserts(t *testing.T) {
	svc, db := newCatalog(t)
	p := seedProducts(t, db, 1, false)[0]
	ctx := context.Background()

	_, updated, err := svc.AddReview(ctx, 7, p.ID, "good", 4)
	require.NoError(t, err)
	assert.False(t, updated)

	review, updated, err := svc.AddReview(ctx, 7, p.ID, "great", 5)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 5, review.Rating)

	details, err := svc.ProductDetails(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, details.Reviews, 1)
	assert.Equal(t, "great", details.Reviews[0].Comment)
	assert.Equal(t, int64(1), details.Product.ReviewCount)

	_, _, err = svc.AddReview(ctx, 7, p.ID, "  ", 5)
	assert.ErrorIs(t, err, ErrInvalidComment)
	_, _, err = svc.AddReview(ctx, 7, p.ID, strings.Repeat("a", 501), 5)
	assert.ErrorIs(t, err, ErrInvalidComment)
	_, _, err = svc.AddReview(ctx, 7, p.ID, "ok", 6)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, _, err = svc.AddReview(ctx, 7, p.ID+100, "ok", 3)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSendChatMessageValidates(t *testing.T) {
	svc, db := newCatalog(t)
	p := seedProducts(t, db, 1, false)[0]
	ctx := context.Background()

	_, err := svc.SendChatMessage(ctx, 1, p.ID, "", false)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = svc.SendChatMessage(ctx, 1, p.ID+100, "hello", false)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.SendChatMessage(ctx, 1, p.ID, "hello", false)
	require.NoError(t, err)
	notes, err := svc.ChatNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, p.Name, notes[0].ProductName)
}

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestCachedReaderServesFromCacheUntilInvalidated(t *testing.T) {
	svc, db := newCatalog(t)
	p := seedProducts(t, db, 1, false)[0]
	ctx := context.Background()

	kv := newMemKV()
	cached := NewCachedReader(svc, kv, time.Minute)
	svc.SetInvalidator(cached)

	first, err := cached.ProductDetails(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, first.Product.Name)
	assert.Contains(t, kv.data, productKey(p.ID))

	// a direct write bypasses invalidation, so the cached copy is still served
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", p.ID).Update("name", "Renamed").Error)
	again, err := cached.ProductDetails(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, again.Product.Name)
	assert.True(t, again.Product.Price.Equal(p.Price))

	// writes through the service invalidate
	_, err = svc.SendChatMessage(ctx, 1, p.ID, "hi", false)
	require.NoError(t, err)
	fresh, err := cached.ProductDetails(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Product.Name)
	assert.Len(t, fresh.ChatMessages, 1)

	_, err = cached.Home(ctx)
	require.NoError(t, err)
	assert.Contains(t, kv.data, homeKey)
	cached.Invalidate(ctx, 0)
	assert.NotContains(t, kv.data, homeKey)
}
