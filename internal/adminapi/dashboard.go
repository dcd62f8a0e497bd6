package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/webserver"
)

const dashboardMonths = 12

type DashboardStats struct {
	Admins               int64                      `json:"admins"`
	Customers            int64                      `json:"customers"`
	Products             int64                      `json:"products"`
	DeliveredThisMonth   int64                      `json:"delivered_this_month"`
	CategoryDistribution map[string]int64           `json:"category_distribution"`
	MonthlyRevenue       map[string]decimal.Decimal `json:"monthly_revenue"`
	NewCustomersByMonth  map[string]int64           `json:"new_customers_by_month"`
}

func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard", getDashboard)
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func getDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	appCtx := GetAppContext(c)
	db := GetDB(c)

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	since := monthStart.AddDate(0, -(dashboardMonths - 1), 0)

	stats := DashboardStats{
		CategoryDistribution: map[string]int64{},
		MonthlyRevenue:       map[string]decimal.Decimal{},
		NewCustomersByMonth:  map[string]int64{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Admins, err = appCtx.Users().CountInRole(gctx, domain.RoleAdmin)
		return err
	})
	g.Go(func() (err error) {
		stats.Customers, err = appCtx.Users().CountInRole(gctx, domain.RoleUser)
		return err
	})
	g.Go(func() error {
		return db.WithContext(gctx).Model(&domain.Product{}).Count(&stats.Products).Error
	})
	g.Go(func() error {
		return db.WithContext(gctx).Model(&domain.Order{}).
			Where("status = ? AND order_date >= ?", domain.OrderStatusDelivered, monthStart).
			Count(&stats.DeliveredThisMonth).Error
	})
	g.Go(func() error {
		var rows []struct {
			Name  string
			Count int64
		}
		err := db.WithContext(gctx).Table("shop_product AS p").
			Select("COALESCE(c.name, '') AS name, COUNT(*) AS count").
			Joins("LEFT JOIN shop_category c ON c.id = p.category_id").
			Group("c.name").
			Scan(&rows).Error
		for _, r := range rows {
			stats.CategoryDistribution[r.Name] = r.Count
		}
		return err
	})
	g.Go(func() error {
		var orders []domain.Order
		err := db.WithContext(gctx).Select("order_date", "subtotal", "discount").
			Where("status = ? AND order_date >= ?", domain.OrderStatusDelivered, since).
			Find(&orders).Error
		for _, o := range orders {
			key := monthKey(o.OrderDate.In(now.Location()))
			stats.MonthlyRevenue[key] = stats.MonthlyRevenue[key].Add(o.Total())
		}
		return err
	})
	g.Go(func() error {
		var users []domain.User
		err := db.WithContext(gctx).Select("created_at").
			Where("email_confirmed = ? AND created_at >= ?", true, since).
			Find(&users).Error
		for _, u := range users {
			stats.NewCustomersByMonth[monthKey(u.CreatedAt.In(now.Location()))]++
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load dashboard", err.Error())
	}
	return ok(c, stats)
}
