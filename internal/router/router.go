// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onvent/event-booking/internal/config"
	"github.com/onvent/event-booking/internal/handler"
	"github.com/onvent/event-booking/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints: the
// health check and the Prometheus metrics scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers signup and login under /v1/auth plus the protected
// /v1/me probe.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterBooking registers the booking endpoints. Availability is public so
// guests can browse remaining seats; everything touching tickets requires a
// valid access token. The write endpoints additionally sit behind the Redis
// token-bucket limiter.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/v1/events/:id/availability", b.Availability)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "ORGANIZER"))

	limited := auth.Group("")
	limited.Use(middleware.NewTokenBucket(rlCfg, rdb))
	limited.POST("/bookings", b.Book)
	limited.DELETE("/tickets/:id", b.Cancel)

	auth.GET("/tickets", b.ListMine)
	auth.GET("/tickets/:id/document", b.Document)
	auth.GET("/events/:id/tickets", b.ListForEvent)
}
