// Package router assembles the echo instance: global middleware, the error
// handler and every admin route.
package router

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/config"
	"github.com/iliyamo/timingle-admin/internal/handler"
	"github.com/iliyamo/timingle-admin/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth   *handler.AuthHandler
	Users  *handler.UserHandler
	Events *handler.EventHandler
	Audit  *handler.AuditHandler
	Stats  *handler.StatsHandler
}

// Options carries everything the router needs besides the handlers.
// Redis may be nil, in which case rate limiting is skipped.
type Options struct {
	Gate        *authz.Gate
	RateLimit   config.RateLimitConfig
	Redis       *redis.Client
	CORSOrigins []string
	Logger      *log.Logger
}

// New builds the echo instance with global middleware and all routes.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	if o.Logger != nil {
		e.Logger = o.Logger
	}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infoj(log.JSON{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			})
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     o.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("1M"))

	Register(e, h, o)
	return e
}

// Register mounts the routes on e.
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/health", handler.Health)

	e.POST("/api/auth/login", h.Auth.Login,
		middleware.NewTokenBucket(o.RateLimit, middleware.LoginBucket(o.RateLimit), o.Redis))

	api := e.Group("/api",
		middleware.AdminAuth(o.Gate),
		middleware.NewTokenBucket(o.RateLimit, middleware.APIBucket(o.RateLimit), o.Redis))

	api.GET("/auth/me", h.Auth.Me)
	api.POST("/auth/logout", h.Auth.Logout)

	api.GET("/users", h.Users.List)
	api.GET("/users/:id", h.Users.Get)
	api.PATCH("/users/:id/status", h.Users.UpdateStatus)
	api.PATCH("/users/:id/role", h.Users.UpdateRole, middleware.RequireSuperAdmin())
	api.DELETE("/users/:id", h.Users.Delete, middleware.RequireSuperAdmin())

	api.GET("/events", h.Events.List)
	api.GET("/events/:id", h.Events.Get)
	api.DELETE("/events/:id", h.Events.Delete)

	api.GET("/audit-logs", h.Audit.List)
	api.GET("/audit-logs/target/:type/:id", h.Audit.ByTarget)

	api.GET("/stats/overview", h.Stats.Overview)
	api.GET("/stats/users/daily", h.Stats.UsersDaily)
	api.GET("/stats/events/daily", h.Stats.EventsDaily)

	api.GET("/system/health", h.Stats.SystemHealth)
}
