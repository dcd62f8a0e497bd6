package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/domain"
)

const (
	apiPrefix   = "/api"
	adminPrefix = "/api/admin"
)

var server *WebServer

// WebServer holds the echo instance and its route groups. Route files
// register into the groups through the package level helpers below.
type WebServer struct {
	root   *echo.Echo
	public *echo.Group
	user   *echo.Group
	admin  *echo.Group
	appCtx app.AppContext
}

// Init builds the server for appCtx. It must run before any route is registered.
func Init(appCtx app.AppContext) {
	server = NewWebServer(appCtx)
}

func NewWebServer(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.ERROR)
	}

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(appContextMiddleware(appCtx))

	e.Static("/images", cfg.GetImageDir())

	s := &WebServer{root: e, appCtx: appCtx}
	s.public = e.Group(apiPrefix)
	s.user = e.Group(apiPrefix, jwtMiddleware(appCtx), activeAccount())
	s.admin = e.Group(adminPrefix, jwtMiddleware(appCtx), activeAccount(), RequireRole(domain.RoleAdmin))
	return s
}

// Echo returns the echo instance of the current server.
func Echo() *echo.Echo {
	return server.root
}

// Listen serves until ctx is canceled, then shuts down gracefully.
func Listen(ctx context.Context) error {
	cfg := server.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("start web server %s", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.root.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	zap.S().Info("shutting down web server")
	return server.root.Shutdown(shutdownCtx)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/images")
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("namespace", "web"),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				zap.L().Error("request", fields...)
			} else {
				zap.L().Debug("request", fields...)
			}
			return nil
		},
	})
}

// PublicGET registers an anonymous route under /api.
func PublicGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.public.GET(path, h, m...)
}

func PublicPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.public.POST(path, h, m...)
}

// UserGET registers a route under /api that requires a signed-in user.
func UserGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.user.GET(path, h, m...)
}

func UserPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.user.POST(path, h, m...)
}

func UserPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.user.PUT(path, h, m...)
}

func UserDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.user.DELETE(path, h, m...)
}

// ApiGET registers an admin route under /api/admin.
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.DELETE(path, h, m...)
}
