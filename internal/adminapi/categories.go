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

type categoryForm struct {
	Name        string `form:"name" json:"name" validate:"required,min=1,max=100"`
	Description string `form:"description" json:"description" validate:"max=1000"`
}

// registerCategoryRoutes registers category CRUD routes
func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiPOST("/categories", createCategory)
	webserver.ApiPUT("/categories/:id", updateCategory)
	webserver.ApiDELETE("/categories/:id", deleteCategory)
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Category{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, q, "name")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	var categories []domain.Category
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&categories).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	return paged(c, categories, total, page, pageSize)
}

func findCategory(c echo.Context) (*domain.Category, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var category domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&category).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	return &category, nil
}

func getCategory(c echo.Context) error {
	category, err := findCategory(c)
	if category == nil {
		return err
	}
	return ok(c, category)
}

func bindCategoryForm(c echo.Context) (*categoryForm, error) {
	var form categoryForm
	if err := c.Bind(&form); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Description = strings.TrimSpace(form.Description)
	if err := c.Validate(&form); err != nil {
		return nil, handleValidationError(c, err)
	}
	return &form, nil
}

func createCategory(c echo.Context) error {
	form, err := bindCategoryForm(c)
	if form == nil {
		return err
	}

	imagePath, err := uploadImage(c, false)
	if err != nil {
		return imageError(c, err)
	}

	category := domain.Category{
		Name:        form.Name,
		Description: form.Description,
		ImagePath:   imagePath,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := GetDB(c).Create(&category).Error; err != nil {
		removeImage(c, imagePath)
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}

	invalidateCatalog(c, 0)
	return ok(c, category)
}

func updateCategory(c echo.Context) error {
	category, err := findCategory(c)
	if category == nil {
		return err
	}
	form, err := bindCategoryForm(c)
	if form == nil {
		return err
	}

	imagePath, err := uploadImage(c, false)
	if err != nil {
		return imageError(c, err)
	}
	previousImage := ""
	if imagePath != "" {
		previousImage = category.ImagePath
		category.ImagePath = imagePath
	}
	category.Name = form.Name
	category.Description = form.Description
	category.UpdatedAt = time.Now()

	if err := GetDB(c).Save(category).Error; err != nil {
		removeImage(c, imagePath)
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}
	removeImage(c, previousImage)

	invalidateCatalog(c, 0)
	return ok(c, category)
}

func deleteCategory(c echo.Context) error {
	category, err := findCategory(c)
	if category == nil {
		return err
	}

	// Prevent deletion while products reference this category
	productCount, err := GetAppContext(c).Store().Products.CountByCategory(c.Request().Context(), category.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	if productCount > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_IN_USE", "Category is in use by products and cannot be deleted", map[string]interface{}{"product_count": productCount})
	}

	if err := GetDB(c).Where("id = ?", category.ID).Delete(&domain.Category{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", err.Error())
	}
	removeImage(c, category.ImagePath)

	invalidateCatalog(c, 0)
	return ok(c, map[string]interface{}{"id": category.ID})
}
