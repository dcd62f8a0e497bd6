package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/webserver"
)

type brandPayload struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"omitempty,max=1000"`
}

type brandUpdatePayload struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// registerBrandRoutes registers brand CRUD routes
func registerBrandRoutes() {
	webserver.ApiGET("/brands", listBrands)
	webserver.ApiGET("/brands/:id", getBrand)
	webserver.ApiPOST("/brands", createBrand)
	webserver.ApiPUT("/brands/:id", updateBrand)
	webserver.ApiDELETE("/brands/:id", deleteBrand)
}

func listBrands(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Brand{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, q, "name", "description")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brands", err.Error())
	}

	var brands []domain.Brand
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&brands).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brands", err.Error())
	}

	return paged(c, brands, total, page, pageSize)
}

func getBrand(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brand ID", nil)
	}

	var b domain.Brand
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "BRAND_NOT_FOUND", "Brand not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brand", err.Error())
	}

	return ok(c, b)
}

func createBrand(c echo.Context) error {
	var payload brandPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse brand parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var exists int64
	GetDB(c).Model(&domain.Brand{}).Where("name = ?", payload.Name).Count(&exists)
	if exists > 0 {
		return fail(c, http.StatusConflict, "BRAND_EXISTS", "Brand name already exists", nil)
	}

	brand := domain.Brand{
		Name:        payload.Name,
		Description: strings.TrimSpace(payload.Description),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := GetDB(c).Create(&brand).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create brand", err.Error())
	}

	return ok(c, brand)
}

func updateBrand(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brand ID", nil)
	}

	var payload brandUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse brand parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var b domain.Brand
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "BRAND_NOT_FOUND", "Brand not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brand", err.Error())
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name != b.Name {
			var exists int64
			GetDB(c).Model(&domain.Brand{}).Where("name = ? AND id != ?", name, id).Count(&exists)
			if exists > 0 {
				return fail(c, http.StatusConflict, "BRAND_EXISTS", "Brand name already exists", nil)
			}
			b.Name = name
		}
	}
	if payload.Description != nil {
		b.Description = strings.TrimSpace(*payload.Description)
	}
	b.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&b).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update brand", err.Error())
	}

	invalidateCatalog(c, 0)
	return ok(c, b)
}

func deleteBrand(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brand ID", nil)
	}

	var b domain.Brand
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "BRAND_NOT_FOUND", "Brand not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brand", err.Error())
	}

	// Prevent deletion while products reference this brand
	productCount, err := GetAppContext(c).Store().Products.CountByBrand(c.Request().Context(), id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	if productCount > 0 {
		return fail(c, http.StatusConflict, "BRAND_IN_USE", "Brand is in use by products and cannot be deleted", map[string]interface{}{"product_count": productCount})
	}

	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Brand{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete brand", err.Error())
	}

	return ok(c, map[string]interface{}{"id": id})
}
