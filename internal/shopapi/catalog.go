package shopapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/talkincode/webshop/internal/catalog"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
	"github.com/talkincode/webshop/internal/webserver"
)

type reviewPayload struct {
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}

type chatPayload struct {
	Message string `json:"message"`
}

func registerCatalogRoutes() {
	webserver.PublicGET("/home", home)
	webserver.PublicGET("/products", products)
	webserver.PublicGET("/products/:id", productDetails)
	webserver.PublicGET("/products/:id/chat", chatThread)
	webserver.PublicGET("/categories", categories)
	webserver.PublicGET("/brands", brands)

	webserver.UserPOST("/products/:id/reviews", addReview)
	webserver.UserPOST("/products/:id/chat", sendChatMessage)
}

func home(c echo.Context) error {
	h, err := appContext(c).Catalog().Home(c.Request().Context())
	if err != nil {
		return internalError(c, "Failed to load home page", err)
	}
	return ok(c, h)
}

func parseDecimalParam(c echo.Context, name string) (*decimal.Decimal, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// products lists the catalog with substring search, price range, category
// and brand filters. Four products per page unless pageSize is given.
func products(c echo.Context) error {
	page, pageSize := webserver.ParsePagination(c, catalog.DefaultPageSize, catalog.MaxPageSize)
	q := catalog.ProductQuery{
		ProductFilter: repository.ProductFilter{Query: strings.TrimSpace(c.QueryParam("q"))},
		Page:          page,
		PageSize:      pageSize,
	}
	var err error
	if q.MinPrice, err = parseDecimalParam(c, "min_price"); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", "Invalid price filter", map[string]string{"min_price": "decimal"})
	}
	if q.MaxPrice, err = parseDecimalParam(c, "max_price"); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", "Invalid price filter", map[string]string{"max_price": "decimal"})
	}
	if id, err := strconv.ParseInt(c.QueryParam("category_id"), 10, 64); err == nil {
		q.CategoryId = id
	}
	if id, err := strconv.ParseInt(c.QueryParam("brand_id"), 10, 64); err == nil {
		q.BrandId = id
	}

	result, err := appContext(c).Catalog().Products(c.Request().Context(), q)
	if err != nil {
		return internalError(c, "Failed to query products", err)
	}
	return webserver.Paged(c, result.Items, result.Total, result.Page, result.PageSize)
}

func productDetails(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	details, err := appContext(c).Catalog().ProductDetails(c.Request().Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return internalError(c, "Failed to query product", err)
	}
	return ok(c, details)
}

// chatThread is polled by the product page; newest message first.
func chatThread(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	messages, err := appContext(c).CatalogService().ChatThread(c.Request().Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return internalError(c, "Failed to query chat messages", err)
	}
	return ok(c, messages)
}

func categories(c echo.Context) error {
	var items []domain.Category
	if err := appContext(c).DB().WithContext(c.Request().Context()).Order("name").Find(&items).Error; err != nil {
		return internalError(c, "Failed to query categories", err)
	}
	return ok(c, items)
}

func brands(c echo.Context) error {
	var items []domain.Brand
	if err := appContext(c).DB().WithContext(c.Request().Context()).Order("name").Find(&items).Error; err != nil {
		return internalError(c, "Failed to query brands", err)
	}
	return ok(c, items)
}

func addReview(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload reviewPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}

	review, updated, err := appContext(c).CatalogService().AddReview(c.Request().Context(), currentUser(c), id, payload.Comment, payload.Rating)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	case errors.Is(err, catalog.ErrInvalidComment):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]string{"comment": "required,max=500"})
	case errors.Is(err, catalog.ErrInvalidRating):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]string{"rating": "min=1,max=5"})
	case err != nil:
		return internalError(c, "Failed to save review", err)
	}
	return ok(c, map[string]interface{}{"review": review, "updated": updated})
}

func sendChatMessage(c echo.Context) error {
	id, err := webserver.ParseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload chatPayload
	if valid, err := bind(c, &payload); !valid {
		return err
	}

	msg, err := appContext(c).CatalogService().SendChatMessage(c.Request().Context(), currentUser(c), id, payload.Message, false)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	case errors.Is(err, catalog.ErrInvalidMessage):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]string{"message": "required,max=500"})
	case err != nil:
		return internalError(c, "Failed to send message", err)
	}
	return ok(c, msg)
}
