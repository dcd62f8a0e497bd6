package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/webserver"
)

var (
	minDiscount = decimal.NewFromInt(1)
	maxDiscount = decimal.NewFromInt(100)
)

// Dates accept any layout dateparse understands, e.g. "2024-05-01",
// "2024-05-01 18:00" or RFC 3339.
type voucherPayload struct {
	Code               string          `json:"code" validate:"required,alphanum,min=3,max=20"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartDate          string          `json:"start_date" validate:"required"`
	EndDate            string          `json:"end_date" validate:"required"`
	IsActive           *bool           `json:"is_active"`
}

// registerVoucherRoutes registers voucher CRUD routes
func registerVoucherRoutes() {
	webserver.ApiGET("/vouchers", listVouchers)
	webserver.ApiGET("/vouchers/:id", getVoucher)
	webserver.ApiPOST("/vouchers", createVoucher)
	webserver.ApiPUT("/vouchers/:id", updateVoucher)
	webserver.ApiDELETE("/vouchers/:id", deleteVoucher)
}

func listVouchers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Voucher{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, q, "code")
	}
	if c.QueryParam("active") == "true" {
		db = db.Where("is_active = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query vouchers", err.Error())
	}

	var vouchers []domain.Voucher
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&vouchers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query vouchers", err.Error())
	}

	return paged(c, vouchers, total, page, pageSize)
}

func getVoucher(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid voucher ID", nil)
	}

	var v domain.Voucher
	if err := GetDB(c).Where("id = ?", id).First(&v).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "VOUCHER_NOT_FOUND", "Voucher not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query voucher", err.Error())
	}

	return ok(c, v)
}

// bindVoucher validates the payload into v. excludeId skips v itself in the
// code uniqueness check. It reports false once an error response is written.
func bindVoucher(c echo.Context, v *domain.Voucher, excludeId int64) (bool, error) {
	var payload voucherPayload
	if err := c.Bind(&payload); err != nil {
		return false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse voucher parameters", nil)
	}
	payload.Code = strings.TrimSpace(payload.Code)
	if err := c.Validate(&payload); err != nil {
		return false, handleValidationError(c, err)
	}

	details := map[string]string{}
	if payload.DiscountPercentage.LessThan(minDiscount) || payload.DiscountPercentage.GreaterThan(maxDiscount) {
		details["discount_percentage"] = "range=1-100"
	}
	start, err := dateparse.ParseIn(strings.TrimSpace(payload.StartDate), time.Local)
	if err != nil {
		details["start_date"] = "datetime"
	}
	end, err := dateparse.ParseIn(strings.TrimSpace(payload.EndDate), time.Local)
	if err != nil {
		details["end_date"] = "datetime"
	}
	if len(details) == 0 && !end.After(start) {
		details["end_date"] = "gtfield=start_date"
	}
	if len(details) > 0 {
		return false, fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters", details)
	}

	var exists int64
	GetDB(c).Model(&domain.Voucher{}).Where("code = ? AND id != ?", payload.Code, excludeId).Count(&exists)
	if exists > 0 {
		return false, fail(c, http.StatusConflict, "VOUCHER_EXISTS", "Voucher code already exists", map[string]string{"code": "unique"})
	}

	v.Code = payload.Code
	v.DiscountPercentage = payload.DiscountPercentage.Round(2)
	v.StartDate = start
	v.EndDate = end
	if payload.IsActive != nil {
		v.IsActive = *payload.IsActive
	} else if excludeId == 0 {
		v.IsActive = true
	}
	v.UpdatedAt = time.Now()
	return true, nil
}

func createVoucher(c echo.Context) error {
	voucher := domain.Voucher{CreatedAt: time.Now()}
	if valid, err := bindVoucher(c, &voucher, 0); !valid {
		return err
	}

	if err := GetDB(c).Create(&voucher).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create voucher", err.Error())
	}

	return ok(c, voucher)
}

func updateVoucher(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid voucher ID", nil)
	}

	var v domain.Voucher
	if err := GetDB(c).Where("id = ?", id).First(&v).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "VOUCHER_NOT_FOUND", "Voucher not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query voucher", err.Error())
	}

	if valid, err := bindVoucher(c, &v, id); !valid {
		return err
	}

	if err := GetDB(c).Save(&v).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update voucher", err.Error())
	}

	return ok(c, v)
}

// deleteVoucher removes the voucher. Orders keep the code as plain text.
func deleteVoucher(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid voucher ID", nil)
	}

	result := GetDB(c).Where("id = ?", id).Delete(&domain.Voucher{})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete voucher", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "VOUCHER_NOT_FOUND", "Voucher not found", nil)
	}

	return ok(c, map[string]interface{}{"id": id})
}
