package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
	"github.com/talkincode/webshop/internal/webserver"
)

var (
	minPrice = decimal.RequireFromString("0.01")
	maxPrice = decimal.NewFromInt(1000000)
)

// productForm is posted as multipart/form-data together with an optional
// "image" file.
type productForm struct {
	Name        string `form:"name" json:"name" validate:"required,min=3,max=100"`
	Price       string `form:"price" json:"price" validate:"required"`
	OldPrice    string `form:"old_price" json:"old_price"`
	Stock       int    `form:"stock" json:"stock" validate:"min=0,max=10000"`
	Description string `form:"description" json:"description" validate:"max=1000"`
	Featured    bool   `form:"featured" json:"featured"`
	CategoryId  int64  `form:"category_id" json:"category_id" validate:"required,gt=0"`
	BrandId     int64  `form:"brand_id" json:"brand_id" validate:"required,gt=0"`
}

// registerProductRoutes registers product CRUD routes
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter := repository.ProductFilter{Query: strings.TrimSpace(c.QueryParam("q"))}
	if id, err := strconv.ParseInt(c.QueryParam("category_id"), 10, 64); err == nil {
		filter.CategoryId = id
	}
	if id, err := strconv.ParseInt(c.QueryParam("brand_id"), 10, 64); err == nil {
		filter.BrandId = id
	}

	items, total, err := GetAppContext(c).Store().Products.Search(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return paged(c, items, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	p, err := GetAppContext(c).Store().Products.Summary(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, p)
}

// bindProductForm binds and validates the form. On failure the error
// response has already been written and handled is true.
func bindProductForm(c echo.Context) (form productForm, price decimal.Decimal, oldPrice *decimal.Decimal, handled bool, err error) {
	if err = c.Bind(&form); err != nil {
		return form, price, nil, true, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product parameters", nil)
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Description = strings.TrimSpace(form.Description)
	if err = c.Validate(&form); err != nil {
		return form, price, nil, true, handleValidationError(c, err)
	}

	price, perr := decimal.NewFromString(strings.TrimSpace(form.Price))
	if perr != nil || price.LessThan(minPrice) || price.GreaterThan(maxPrice) {
		return form, price, nil, true, fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters",
			map[string]string{"price": "range=0.01-1000000"})
	}
	if s := strings.TrimSpace(form.OldPrice); s != "" {
		v, perr := decimal.NewFromString(s)
		if perr != nil || v.IsNegative() || v.GreaterThan(maxPrice) {
			return form, price, nil, true, fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters",
				map[string]string{"old_price": "range=0-1000000"})
		}
		v = v.Round(2)
		oldPrice = &v
	}

	db := GetDB(c)
	var count int64
	db.Model(&domain.Category{}).Where("id = ?", form.CategoryId).Count(&count)
	if count == 0 {
		return form, price, nil, true, fail(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category does not exist", nil)
	}
	db.Model(&domain.Brand{}).Where("id = ?", form.BrandId).Count(&count)
	if count == 0 {
		return form, price, nil, true, fail(c, http.StatusBadRequest, "BRAND_NOT_FOUND", "Brand does not exist", nil)
	}
	return form, price.Round(2), oldPrice, false, nil
}

func createProduct(c echo.Context) error {
	form, price, oldPrice, handled, err := bindProductForm(c)
	if handled {
		return err
	}

	imagePath, err := uploadImage(c, false)
	if err != nil {
		return imageError(c, err)
	}

	product := domain.Product{
		Name:        form.Name,
		Price:       price,
		OldPrice:    oldPrice,
		Stock:       form.Stock,
		Description: form.Description,
		ImagePath:   imagePath,
		Featured:    form.Featured,
		CategoryId:  form.CategoryId,
		BrandId:     form.BrandId,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := GetDB(c).Create(&product).Error; err != nil {
		removeImage(c, imagePath)
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}

	invalidateCatalog(c, product.ID)
	return ok(c, product)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var product domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&product).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	form, price, oldPrice, handled, err := bindProductForm(c)
	if handled {
		return err
	}

	imagePath, err := uploadImage(c, false)
	if err != nil {
		return imageError(c, err)
	}
	previousImage := ""
	if imagePath != "" {
		previousImage = product.ImagePath
		product.ImagePath = imagePath
	}

	product.Name = form.Name
	product.Price = price
	product.OldPrice = oldPrice
	product.Stock = form.Stock
	product.Description = form.Description
	product.Featured = form.Featured
	product.CategoryId = form.CategoryId
	product.BrandId = form.BrandId
	product.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&product).Error; err != nil {
		removeImage(c, imagePath)
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	removeImage(c, previousImage)

	invalidateCatalog(c, product.ID)
	return ok(c, product)
}

// deleteProduct removes the product with its reviews, chat messages and cart
// lines. Order lines keep their snapshot.
func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	products := GetAppContext(c).Store().Products
	product, err := products.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	if err := products.Delete(c.Request().Context(), id); errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	removeImage(c, product.ImagePath)

	invalidateCatalog(c, id)
	return ok(c, map[string]interface{}{"id": id})
}
