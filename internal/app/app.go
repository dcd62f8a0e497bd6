package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/config"
	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/catalog"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/notify"
	"github.com/talkincode/webshop/internal/repository"
	"github.com/talkincode/webshop/internal/shop"
	"github.com/talkincode/webshop/internal/storage"
)

type Application struct {
	appConfig  *config.AppConfig
	gormDB     *gorm.DB
	sched      *cron.Cron
	jobEntries map[string]cron.EntryID
	bus        EventBus.Bus
	redis      *redis.Client
	store      *repository.Store
	users      *auth.UserService
	tokens     *auth.TokenIssuer
	carts      *shop.CartService
	orders     *shop.OrderService
	catalog    *catalog.Service
	reader     catalog.Reader
	images     *storage.ImageStore
	dispatcher *notify.Dispatcher
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the database handle and rebuilds the services on top
// of it (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) error {
	a.gormDB = db
	return a.wire()
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	var err error
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// Init sets up logging, opens and migrates the database, seeds reference
// rows and wires the services. Background jobs are started separately.
func (a *Application) Init(cfg *config.AppConfig) error {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB, err = OpenDatabase(cfg.Database, cfg.GetDataDir())
	if err != nil {
		return err
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
		return err
	}

	if err := a.wire(); err != nil {
		return err
	}

	a.checkRoles()
	a.checkCatalogDefaults()
	return nil
}

func (a *Application) wire() error {
	cfg := a.appConfig
	a.bus = EventBus.New()
	a.store = repository.NewStore(a.gormDB)

	a.users = auth.NewUserService(a.gormDB)
	a.users.SetPublisher(a.bus)
	a.tokens = auth.NewTokenIssuer(cfg.Web.Secret, time.Duration(cfg.Web.TokenTTL)*time.Hour, cfg.System.Appid)

	a.carts = shop.NewCartService(a.store)
	a.orders = shop.NewOrderService(a.store, a.bus)

	a.catalog = catalog.NewService(a.store)
	a.reader = a.catalog
	if client := a.connectRedis(); client != nil {
		a.redis = client
		cached := catalog.NewCachedReader(a.catalog, catalog.NewRedisKV(client), time.Duration(cfg.Redis.CacheTTL)*time.Second)
		a.catalog.SetInvalidator(cached)
		a.reader = cached
	}

	a.images = storage.NewImageStore(cfg.GetImageDir(), "/images", cfg.Storage.MaxImageSize)

	if a.dispatcher != nil {
		a.dispatcher.Release()
	}
	dispatcher, err := notify.NewDispatcher(notify.NewMailer(cfg.Smtp), a.users, cfg.Smtp.Workers)
	if err != nil {
		return err
	}
	if err := dispatcher.Subscribe(a.bus); err != nil {
		return err
	}
	a.dispatcher = dispatcher
	return nil
}

func (a *Application) connectRedis() *redis.Client {
	cfg := a.appConfig.Redis
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis unavailable, catalog cache disabled",
			zap.String("addr", cfg.Addr),
			zap.Error(err),
			zap.String("namespace", "catalog"))
		_ = client.Close()
		return nil
	}
	zap.L().Info("catalog cache enabled", zap.String("addr", cfg.Addr), zap.String("namespace", "catalog"))
	return client
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) Store() *repository.Store {
	return a.store
}

func (a *Application) Users() *auth.UserService {
	return a.users
}

func (a *Application) Tokens() *auth.TokenIssuer {
	return a.tokens
}

func (a *Application) Carts() *shop.CartService {
	return a.carts
}

func (a *Application) Orders() *shop.OrderService {
	return a.orders
}

// Catalog returns the read side, served from redis when it is configured.
func (a *Application) Catalog() catalog.Reader {
	return a.reader
}

func (a *Application) CatalogService() *catalog.Service {
	return a.catalog
}

func (a *Application) Images() *storage.ImageStore {
	return a.images
}

// WaitNotifications blocks until queued mail deliveries finish.
func (a *Application) WaitNotifications() {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
}

// StartBackgroundJobs starts the cron jobs; they stop when ctx is done.
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	a.initJob()
	go func() {
		<-ctx.Done()
		a.sched.Stop()
	}()
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Release()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = zap.L().Sync()
}
