package adminapi

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/webserver"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Init registers all admin routes. webserver.Init must have run first.
func Init() {
	registerProductRoutes()
	registerCategoryRoutes()
	registerBrandRoutes()
	registerBannerRoutes()
	registerVoucherRoutes()
	registerOrderRoutes()
	registerUserRoutes()
	registerChatRoutes()
	registerDashboardRoutes()
	registerJobRoutes()
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func parsePagination(c echo.Context) (int, int) {
	return webserver.ParsePagination(c, defaultPageSize, maxPageSize)
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return webserver.ParseIDParam(c, name)
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, data, total, page, pageSize)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func handleValidationError(c echo.Context, err error) error {
	return webserver.HandleValidationError(c, err)
}

// likeFilter adds a case-insensitive substring match over columns.
func likeFilter(db *gorm.DB, q string, columns ...string) *gorm.DB {
	postgres := strings.EqualFold(db.Name(), "postgres")
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		if postgres {
			conds = append(conds, col+" ILIKE ?")
			args = append(args, "%"+q+"%")
		} else {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(q)+"%")
		}
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

// invalidateCatalog drops cached storefront pages after catalog edits.
func invalidateCatalog(c echo.Context, productId int64) {
	GetAppContext(c).CatalogService().Invalidate(context.WithoutCancel(c.Request().Context()), productId)
}
