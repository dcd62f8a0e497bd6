package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
)

const (
	HomeFeaturedLimit = 6
	HomeCategoryLimit = 6
	HomeNewestLimit   = 6
	DefaultPageSize   = 4
	MaxPageSize       = 100

	maxReviewComment = 500
	maxChatMessage   = 500
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidComment  = errors.New("comment is required and must be at most 500 characters")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidMessage  = errors.New("message is required and must be at most 500 characters")
)

type Home struct {
	Banners          []domain.Banner         `json:"banners"`
	FeaturedProducts []domain.ProductSummary `json:"featured_products"`
	Categories       []domain.Category       `json:"categories"`
	NewProducts      []domain.ProductSummary `json:"new_products"`
}

type ProductQuery struct {
	repository.ProductFilter
	Page     int
	PageSize int
}

type ProductPage struct {
	Items    []domain.ProductSummary `json:"items"`
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}

type ProductDetails struct {
	Product      domain.ProductSummary    `json:"product"`
	Reviews      []domain.ReviewView      `json:"reviews"`
	ChatMessages []domain.ChatMessageView `json:"chat_messages"`
}

// Reader is the read side of the catalog. The cached decorator implements it too.
type Reader interface {
	Home(ctx context.Context) (*Home, error)
	Products(ctx context.Context, q ProductQuery) (*ProductPage, error)
	ProductDetails(ctx context.Context, id int64) (*ProductDetails, error)
}

// Invalidator drops cached views after a write. productId 0 only drops the home page.
type Invalidator interface {
	Invalidate(ctx context.Context, productId int64)
}

type Service struct {
	store       *repository.Store
	invalidator Invalidator
	now         func() time.Time
}

var _ Reader = (*Service)(nil)

func NewService(store *repository.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

func (s *Service) Invalidate(ctx context.Context, productId int64) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, productId)
	}
}

func (s *Service) Home(ctx context.Context) (*Home, error) {
	db := s.store.DB().WithContext(ctx)
	home := &Home{}
	if err := db.Order("id DESC").Find(&home.Banners).Error; err != nil {
		return nil, err
	}
	if err := db.Order("id ASC").Limit(HomeCategoryLimit).Find(&home.Categories).Error; err != nil {
		return nil, err
	}
	var err error
	if home.FeaturedProducts, err = s.store.Products.Featured(ctx, HomeFeaturedLimit); err != nil {
		return nil, err
	}
	if home.NewProducts, err = s.store.Products.Newest(ctx, HomeNewestLimit); err != nil {
		return nil, err
	}
	return home, nil
}

func (s *Service) Products(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	items, total, err := s.store.Products.Search(ctx, q.ProductFilter, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	return &ProductPage{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *Service) ProductDetails(ctx context.Context, id int64) (*ProductDetails, error) {
	p, err := s.store.Products.Summary(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, err
	}
	details := &ProductDetails{Product: *p}
	if details.Reviews, err = s.store.Reviews.ByProduct(ctx, id); err != nil {
		return nil, err
	}
	if details.ChatMessages, err = s.store.Chats.ByProduct(ctx, id); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Service) requireProduct(ctx context.Context, id int64) error {
	_, err := s.store.Products.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}

// AddReview stores the user's review of a product, overwriting an earlier
// one. It reports whether an existing review was updated.
func (s *Service) AddReview(ctx context.Context, userId, productId int64, comment string, rating int) (*domain.ProductReview, bool, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" || utf8.RuneCountInString(comment) > maxReviewComment {
		return nil, false, ErrInvalidComment
	}
	if rating < 1 || rating > 5 {
		return nil, false, ErrInvalidRating
	}
	if err := s.requireProduct(ctx, productId); err != nil {
		return nil, false, err
	}

	review, err := s.store.Reviews.Find(ctx, productId, userId)
	updated := true
	switch {
	case errors.Is(err, repository.ErrNotFound):
		updated = false
		review = &domain.ProductReview{ProductId: productId, UserId: userId}
	case err != nil:
		return nil, false, err
	}
	review.Comment = comment
	review.Rating = rating
	review.CreatedAt = s.now()
	if err := s.store.Reviews.Save(ctx, review); err != nil {
		return nil, false, err
	}
	s.Invalidate(ctx, productId)
	return review, updated, nil
}

func (s *Service) SendChatMessage(ctx context.Context, userId, productId int64, message string, isAdminReply bool) (*domain.ProductChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > maxChatMessage {
		return nil, ErrInvalidMessage
	}
	if err := s.requireProduct(ctx, productId); err != nil {
		return nil, err
	}
	msg := &domain.ProductChatMessage{
		ProductId:    productId,
		UserId:       userId,
		Message:      message,
		IsAdminReply: isAdminReply,
		CreatedAt:    s.now(),
	}
	if err := s.store.Chats.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, productId)
	return msg, nil
}

// ChatThread returns a product's messages newest first; clients poll it.
func (s *Service) ChatThread(ctx context.Context, productId int64) ([]domain.ChatMessageView, error) {
	if err := s.requireProduct(ctx, productId); err != nil {
		return nil, err
	}
	return s.store.Chats.ByProduct(ctx, productId)
}

// ChatNotifications lists the latest message of each product thread.
func (s *Service) ChatNotifications(ctx context.Context) ([]domain.ChatMessageView, error) {
	return s.store.Chats.LatestPerProduct(ctx)
}
