package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/apptest"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/webserver"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Meta    *webserver.ListMeta
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type ShopAPISuite struct {
	suite.Suite
	app       *app.Application
	userId    int64
	userToken string
	category  domain.Category
	brand     domain.Brand
	phone     domain.Product
}

func TestShopAPISuite(t *testing.T) {
	suite.Run(t, new(ShopAPISuite))
}

func (s *ShopAPISuite) SetupTest() {
	s.app = apptest.New(s.T())
	webserver.Init(s.app)
	Init()

	s.userId, s.userToken = apptest.Login(s.T(), s.app, "buyer@example.com", false)

	s.category = domain.Category{Name: "Phones"}
	s.brand = domain.Brand{Name: "Acme"}
	s.Require().NoError(s.app.DB().Create(&s.category).Error)
	s.Require().NoError(s.app.DB().Create(&s.brand).Error)
	s.phone = s.seedProduct("Acme Phone", "100.00", 2)
}

func (s *ShopAPISuite) seedProduct(name, price string, stock int) domain.Product {
	p := domain.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryId: s.category.ID,
		BrandId:    s.brand.ID,
	}
	s.Require().NoError(s.app.DB().Create(&p).Error)
	return p
}

func (s *ShopAPISuite) seedVoucher(code string, percent int64) {
	now := time.Now()
	v := domain.Voucher{
		Code:               code,
		DiscountPercentage: decimal.NewFromInt(percent),
		StartDate:          now.Add(-time.Hour),
		EndDate:            now.Add(24 * time.Hour),
		IsActive:           true,
	}
	s.Require().NoError(s.app.DB().Create(&v).Error)
}

func (s *ShopAPISuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, token)
	}
	rec := httptest.NewRecorder()
	webserver.Echo().ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *ShopAPISuite) decode(env envelope, v interface{}) {
	s.Require().NoError(json.Unmarshal(env.Data, v))
}

func (s *ShopAPISuite) addToCart(productId int64, quantity int) {
	rec, _ := s.do(http.MethodPost, "/api/cart", s.userToken, map[string]interface{}{"product_id": productId, "quantity": quantity})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *ShopAPISuite) placeOrder() domain.Order {
	rec, env := s.do(http.MethodPost, "/api/orders", s.userToken, map[string]string{"shipping_address": "1 Main St"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var order domain.Order
	s.decode(env, &order)
	return order
}

func (s *ShopAPISuite) stockOf(id int64) int {
	var p domain.Product
	s.Require().NoError(s.app.DB().First(&p, id).Error)
	return p.Stock
}

func (s *ShopAPISuite) TestRegisterAndLogin() {
	payload := map[string]string{
		"email":            "New@Example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
		"full_name":        "New Customer",
	}
	rec, env := s.do(http.MethodPost, "/api/auth/register", "", payload)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var tok tokenResponse
	s.decode(env, &tok)
	s.NotEmpty(tok.Token)
	s.Equal("new@example.com", tok.User.Email)
	s.Equal([]string{domain.RoleUser}, tok.Roles)

	rec, env = s.do(http.MethodPost, "/api/auth/register", "", payload)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("EMAIL_EXISTS", env.Code)

	payload["email"] = "other@example.com"
	payload["confirm_password"] = "different"
	rec, env = s.do(http.MethodPost, "/api/auth/register", "", payload)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", env.Code)
	s.Contains(string(env.Details), "confirm_password")

	rec, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("INVALID_CREDENTIALS", env.Code)

	rec, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "secret1"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(env, &tok)

	rec, _ = s.do(http.MethodGet, "/api/profile", "Bearer "+tok.Token, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ShopAPISuite) TestProductListingIsPaged() {
	for i := 0; i < 4; i++ {
		s.seedProduct(fmt.Sprintf("Widget %d", i), "10.00", 5)
	}

	rec, env := s.do(http.MethodGet, "/api/products", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var items []domain.ProductSummary
	s.decode(env, &items)
	s.Len(items, 4)
	s.Require().NotNil(env.Meta)
	s.EqualValues(5, env.Meta.Total)
	s.Equal(2, env.Meta.Pages)

	_, env = s.do(http.MethodGet, "/api/products?page=2", "", nil)
	s.decode(env, &items)
	s.Len(items, 1)

	_, env = s.do(http.MethodGet, "/api/products?q=phone", "", nil)
	s.decode(env, &items)
	s.Require().Len(items, 1)
	s.Equal("Acme Phone", items[0].Name)
	s.Equal("Phones", items[0].CategoryName)

	_, env = s.do(http.MethodGet, "/api/products?min_price=50", "", nil)
	s.decode(env, &items)
	s.Len(items, 1)

	rec, env = s.do(http.MethodGet, "/api/products?max_price=abc", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_FILTER", env.Code)
}

func (s *ShopAPISuite) TestReviewIsUpsertedPerUser() {
	path := fmt.Sprintf("/api/products/%d/reviews", s.phone.ID)
	rec, _ := s.do(http.MethodPost, path, "", map[string]interface{}{"comment": "Great", "rating": 5})
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, env := s.do(http.MethodPost, path, s.userToken, map[string]interface{}{"comment": "Great", "rating": 5})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Updated bool `json:"updated"`
	}
	s.decode(env, &result)
	s.False(result.Updated)

	rec, env = s.do(http.MethodPost, path, s.userToken, map[string]interface{}{"comment": "Still fine", "rating": 3})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(env, &result)
	s.True(result.Updated)

	rec, env = s.do(http.MethodPost, path, s.userToken, map[string]interface{}{"comment": "Bad", "rating": 9})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", env.Code)

	rec, env = s.do(http.MethodGet, fmt.Sprintf("/api/products/%d", s.phone.ID), "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var details struct {
		Product domain.ProductSummary `json:"product"`
		Reviews []domain.ReviewView   `json:"reviews"`
	}
	s.decode(env, &details)
	s.EqualValues(1, details.Product.ReviewCount)
	s.InDelta(3.0, details.Product.AvgRating, 0.001)
	s.Require().Len(details.Reviews, 1)
	s.Equal("Still fine", details.Reviews[0].Comment)
	s.Equal("Test Customer", details.Reviews[0].UserName)

	rec, env = s.do(http.MethodGet, "/api/products/999999", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("PRODUCT_NOT_FOUND", env.Code)
}

func (s *ShopAPISuite) TestProductChat() {
	path := fmt.Sprintf("/api/products/%d/chat", s.phone.ID)
	rec, _ := s.do(http.MethodPost, path, s.userToken, map[string]string{"message": "Is it waterproof?"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, env := s.do(http.MethodPost, path, s.userToken, map[string]string{"message": "   "})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", env.Code)

	rec, env = s.do(http.MethodGet, path, "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var thread []domain.ChatMessageView
	s.decode(env, &thread)
	s.Require().Len(thread, 1)
	s.Equal("Is it waterproof?", thread[0].Message)
	s.False(thread[0].IsAdminReply)
}

func (s *ShopAPISuite) TestCartRejectsQuantityBeyondStock() {
	rec, env := s.do(http.MethodPost, "/api/cart", s.userToken, map[string]interface{}{"product_id": s.phone.ID, "quantity": 3})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INSUFFICIENT_STOCK", env.Code)
	s.Equal("Only 2 items available in stock.", env.Message)

	rec, env = s.do(http.MethodPost, "/api/cart", s.userToken, map[string]interface{}{"product_id": s.phone.ID, "quantity": 0})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_QUANTITY", env.Code)

	s.addToCart(s.phone.ID, 1)
	s.addToCart(s.phone.ID, 1)

	rec, env = s.do(http.MethodGet, "/api/cart", s.userToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var cart cartView
	s.decode(env, &cart)
	s.Require().Len(cart.Lines, 1)
	s.Equal(2, cart.Lines[0].Quantity)
	s.True(decimal.NewFromInt(200).Equal(cart.Subtotal))

	lineId := cart.Lines[0].ID
	rec, env = s.do(http.MethodPut, fmt.Sprintf("/api/cart/%d", lineId), s.userToken, map[string]int{"quantity": 0})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(env, &cart)
	s.Empty(cart.Lines)
	rec, env = s.do(http.MethodPut, fmt.Sprintf("/api/cart/%d", lineId), s.userToken, map[string]int{"quantity": 1})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("CART_ITEM_NOT_FOUND", env.Code)

	rec, env = s.do(http.MethodDelete, fmt.Sprintf("/api/cart/%d", lineId), s.userToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
}

func (s *ShopAPISuite) TestCheckoutWithVoucher() {
	s.seedVoucher("SAVE10", 10)
	s.addToCart(s.phone.ID, 2)

	rec, env := s.do(http.MethodGet, "/api/checkout?voucher=SAVE10", s.userToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		Subtotal       decimal.Decimal `json:"subtotal"`
		Discount       decimal.Decimal `json:"discount"`
		Total          decimal.Decimal `json:"total"`
		VoucherMessage string          `json:"voucher_message"`
	}
	s.decode(env, &summary)
	s.True(decimal.NewFromInt(200).Equal(summary.Subtotal))
	s.True(decimal.NewFromInt(20).Equal(summary.Discount))
	s.True(decimal.NewFromInt(180).Equal(summary.Total))

	_, env = s.do(http.MethodGet, "/api/checkout?voucher=NOPE", s.userToken, nil)
	s.decode(env, &summary)
	s.Equal("Invalid or expired voucher code.", summary.VoucherMessage)
	s.True(summary.Discount.IsZero())

	rec, env = s.do(http.MethodPost, "/api/orders", s.userToken, map[string]string{"shipping_address": "1 Main St", "voucher_code": "NOPE"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_VOUCHER", env.Code)

	rec, env = s.do(http.MethodPost, "/api/orders", s.userToken, map[string]string{"shipping_address": " "})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(string(env.Details), "shipping_address")

	rec, env = s.do(http.MethodPost, "/api/orders", s.userToken, map[string]string{"shipping_address": "1 Main St", "voucher_code": "SAVE10"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var order domain.Order
	s.decode(env, &order)
	s.Equal(domain.OrderStatusPlaced, order.Status)
	s.Equal(domain.PaymentStatusUnpaid, order.PaymentStatus)
	s.True(decimal.NewFromInt(180).Equal(order.Total()))
	s.Len(order.Items, 1)
	s.Equal(0, s.stockOf(s.phone.ID))

	rec, env = s.do(http.MethodPost, "/api/orders", s.userToken, map[string]string{"shipping_address": "1 Main St"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("EMPTY_CART", env.Code)
}

func (s *ShopAPISuite) TestPlaceOrderFailsWhenStockRanOut() {
	s.addToCart(s.phone.ID, 2)
	s.Require().NoError(s.app.DB().Model(&domain.Product{}).Where("id = ?", s.phone.ID).Update("stock", 1).Error)

	rec, env := s.do(http.MethodPost, "/api/orders", s.userToken, map[string]string{"shipping_address": "1 Main St"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INSUFFICIENT_STOCK", env.Code)
	s.Equal("Insufficient stock for product Acme Phone", env.Message)
	s.Equal(1, s.stockOf(s.phone.ID))
}

func (s *ShopAPISuite) TestCancelRestoresStock() {
	s.addToCart(s.phone.ID, 2)
	order := s.placeOrder()
	s.Equal(0, s.stockOf(s.phone.ID))

	path := fmt.Sprintf("/api/orders/%d/cancel", order.ID)
	rec, env := s.do(http.MethodPost, path, s.userToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(env, &order)
	s.Equal(domain.OrderStatusCanceled, order.Status)
	s.Equal(2, s.stockOf(s.phone.ID))

	rec, env = s.do(http.MethodPost, path, s.userToken, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("ORDER_NOT_CANCELABLE", env.Code)
	s.Equal(2, s.stockOf(s.phone.ID))
}

func (s *ShopAPISuite) TestPayOrder() {
	s.addToCart(s.phone.ID, 1)
	order := s.placeOrder()

	path := fmt.Sprintf("/api/orders/%d/pay", order.ID)
	rec, env := s.do(http.MethodPost, path, s.userToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(env, &order)
	s.Equal(domain.OrderStatusPaid, order.Status)
	s.Equal(domain.PaymentStatusPaid, order.PaymentStatus)

	rec, env = s.do(http.MethodPost, path, s.userToken, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("ORDER_NOT_PAYABLE", env.Code)

	rec, env = s.do(http.MethodGet, "/api/orders", s.userToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var orders []domain.Order
	s.decode(env, &orders)
	s.Len(orders, 1)
}

func (s *ShopAPISuite) TestOrdersAreScopedToOwner() {
	s.addToCart(s.phone.ID, 1)
	order := s.placeOrder()

	_, otherToken := apptest.Login(s.T(), s.app, "other@example.com", false)
	path := fmt.Sprintf("/api/orders/%d", order.ID)
	rec, env := s.do(http.MethodGet, path, otherToken, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("ORDER_NOT_FOUND", env.Code)

	rec, _ = s.do(http.MethodPost, path+"/cancel", otherToken, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(1, s.stockOf(s.phone.ID))

	rec, _ = s.do(http.MethodGet, path, s.userToken, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ShopAPISuite) TestProfileAndPassword() {
	rec, env := s.do(http.MethodPut, "/api/profile", s.userToken, map[string]string{
		"full_name": "Jane Buyer", "address": "2 Side St", "phone_number": "555-0100",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var user domain.User
	s.decode(env, &user)
	s.Equal("Jane Buyer", user.FullName)

	rec, env = s.do(http.MethodPut, "/api/profile", s.userToken, map[string]string{"full_name": ""})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", env.Code)

	rec, env = s.do(http.MethodPut, "/api/profile/password", s.userToken, map[string]string{
		"current_password": "wrong", "new_password": "NewSecret1", "confirm_password": "NewSecret1",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_PASSWORD", env.Code)

	rec, _ = s.do(http.MethodPut, "/api/profile/password", s.userToken, map[string]string{
		"current_password": "Secret#123", "new_password": "NewSecret1", "confirm_password": "NewSecret1",
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	_, _, err := s.app.Users().Authenticate(context.Background(), "buyer@example.com", "NewSecret1")
	s.NoError(err)

	s.addToCart(s.phone.ID, 1)
	_, env = s.do(http.MethodGet, "/api/checkout", s.userToken, nil)
	var summary struct {
		ShippingAddress string `json:"shipping_address"`
	}
	s.decode(env, &summary)
	s.Equal("2 Side St", summary.ShippingAddress)
}
