package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/webshop/internal/domain"
)

func (a *Application) checkRoles() {
	if err := a.users.EnsureRoles(context.Background()); err != nil {
		zap.L().Error("failed to initialize roles", zap.Error(err))
	}
}

// checkCatalogDefaults creates a fallback category and brand so products can
// be created on an empty database.
func (a *Application) checkCatalogDefaults() {
	var count int64
	a.gormDB.Model(&domain.Category{}).Count(&count)
	if count == 0 {
		c := domain.Category{Name: "General", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := a.gormDB.Create(&c).Error; err != nil {
			zap.L().Error("failed to create default category", zap.Error(err))
		} else {
			zap.L().Info("initialized default category", zap.String("name", c.Name))
		}
	}

	a.gormDB.Model(&domain.Brand{}).Count(&count)
	if count == 0 {
		b := domain.Brand{Name: "Generic", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := a.gormDB.Create(&b).Error; err != nil {
			zap.L().Error("failed to create default brand", zap.Error(err))
		} else {
			zap.L().Info("initialized default brand", zap.String("name", b.Name))
		}
	}
}

// EnsureAdmin creates an administrator account. It reports false when the
// email is already registered.
func (a *Application) EnsureAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	created, err := a.users.CreateAdmin(ctx, email, password, fullName)
	if err != nil {
		return false, err
	}
	if created {
		zap.L().Info("created admin user", zap.String("email", email), zap.String("namespace", "auth"))
	}
	return created, nil
}
