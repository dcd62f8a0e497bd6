package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle, so a
// transaction can hand every repository the same *gorm.DB.
type Store struct {
	db       *gorm.DB
	Products ProductRepository
	Reviews  ReviewRepository
	Chats    ChatRepository
	Carts    CartRepository
	Vouchers VoucherRepository
	Orders   OrderRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Products: NewGormProductRepository(db),
		Reviews:  NewGormReviewRepository(db),
		Chats:    NewGormChatRepository(db),
		Carts:    NewGormCartRepository(db),
		Vouchers: NewGormVoucherRepository(db),
		Orders:   NewGormOrderRepository(db),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a store bound to a single database transaction.
// Any error returned by fn rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(NewStore(db))
	})
}

// isPostgres selects ILIKE over LOWER(..) LIKE for substring filters.
func isPostgres(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == "postgres"
}

func likeFilter(db *gorm.DB, column, q string) *gorm.DB {
	if isPostgres(db) {
		return db.Where(column+" ILIKE ?", "%"+q+"%")
	}
	return db.Where("LOWER("+column+") LIKE LOWER(?)", "%"+q+"%")
}
