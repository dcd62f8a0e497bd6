package adminapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/webserver"
)

// registerBannerRoutes registers banner routes. Banners are image only and
// are uploaded as multipart/form-data.
func registerBannerRoutes() {
	webserver.ApiGET("/banners", listBanners)
	webserver.ApiGET("/banners/:id", getBanner)
	webserver.ApiPOST("/banners", createBanner)
	webserver.ApiPUT("/banners/:id", updateBanner)
	webserver.ApiDELETE("/banners/:id", deleteBanner)
}

func listBanners(c echo.Context) error {
	var banners []domain.Banner
	if err := GetDB(c).Order("id DESC").Find(&banners).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query banners", err.Error())
	}
	return ok(c, banners)
}

func findBanner(c echo.Context) (*domain.Banner, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid banner ID", nil)
	}
	var banner domain.Banner
	if err := GetDB(c).Where("id = ?", id).First(&banner).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "BANNER_NOT_FOUND", "Banner not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query banner", err.Error())
	}
	return &banner, nil
}

func getBanner(c echo.Context) error {
	banner, err := findBanner(c)
	if banner == nil {
		return err
	}
	return ok(c, banner)
}

func createBanner(c echo.Context) error {
	imagePath, err := uploadImage(c, true)
	if err != nil {
		return imageError(c, err)
	}

	banner := domain.Banner{ImagePath: imagePath, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := GetDB(c).Create(&banner).Error; err != nil {
		removeImage(c, imagePath)
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create banner", err.Error())
	}

	invalidateCatalog(c, 0)
	return ok(c, banner)
}

func updateBanner(c echo.Context) error {
	banner, err := findBanner(c)
	if banner == nil {
		return err
	}

	imagePath, err := uploadImage(c, false)
	if err != nil {
		return imageError(c, err)
	}
	if imagePath == "" {
		return ok(c, banner)
	}

	previousImage := banner.ImagePath
	banner.ImagePath = imagePath
	banner.UpdatedAt = time.Now()
	if err := GetDB(c).Save(banner).Error; err != nil {
		removeImage(c, imagePath)
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update banner", err.Error())
	}
	removeImage(c, previousImage)

	invalidateCatalog(c, 0)
	return ok(c, banner)
}

func deleteBanner(c echo.Context) error {
	banner, err := findBanner(c)
	if banner == nil {
		return err
	}
	if err := GetDB(c).Where("id = ?", banner.ID).Delete(&domain.Banner{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete banner", err.Error())
	}
	removeImage(c, banner.ImagePath)

	invalidateCatalog(c, 0)
	return ok(c, map[string]interface{}{"id": banner.ID})
}
