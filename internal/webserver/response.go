package webserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Response struct {
	Data interface{} `json:"data"`
	Meta *ListMeta   `json:"meta,omitempty"`
}

type ListMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Pages    int   `json:"pages"`
}

type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Data: data})
}

func Paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return c.JSON(http.StatusOK, Response{
		Data: data,
		Meta: &ListMeta{Total: total, Page: page, PageSize: pageSize, Pages: pages},
	})
}

func Fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Code: code, Message: message, Details: details})
}

// ValidationDetails maps validator errors to field -> rule.
func ValidationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return details
}

func HandleValidationError(c echo.Context, err error) error {
	return Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters", ValidationDetails(err))
}

// ParseIDParam reads a positive integer path parameter.
func ParseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

// ParsePagination reads page and pageSize, falling back to defaultSize and
// clamping to maxSize.
func ParsePagination(c echo.Context, defaultSize, maxSize int) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.QueryParam("pageSize"))
	if err != nil || pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := http.StatusText(status)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = http.StatusText(status)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		switch status {
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusUnauthorized:
			code = "UNAUTHORIZED"
		case http.StatusRequestEntityTooLarge:
			code = "PAYLOAD_TOO_LARGE"
		default:
			if status < http.StatusInternalServerError {
				code = "BAD_REQUEST"
			}
		}
	} else {
		zap.L().Error("unhandled request error",
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
			zap.String("namespace", "web"))
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = Fail(c, status, code, message, nil)
	}
	if werr != nil {
		zap.L().Error("write error response", zap.Error(werr), zap.String("namespace", "web"))
	}
}
