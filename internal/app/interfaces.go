package app

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/config"
	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/catalog"
	"github.com/talkincode/webshop/internal/repository"
	"github.com/talkincode/webshop/internal/shop"
	"github.com/talkincode/webshop/internal/storage"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
	Jobs() []JobStatus
	RunJobNow(name string) error
}

// ServiceProvider exposes the domain services request handlers call into
type ServiceProvider interface {
	Bus() EventBus.Bus
	Store() *repository.Store
	Users() *auth.UserService
	Tokens() *auth.TokenIssuer
	Carts() *shop.CartService
	Orders() *shop.OrderService
	Catalog() catalog.Reader
	CatalogService() *catalog.Service
	Images() *storage.ImageStore
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	ServiceProvider

	MigrateDB(track bool) error
}
