package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/onvent/event-booking/internal/clock"
	"github.com/onvent/event-booking/internal/config"
	"github.com/onvent/event-booking/internal/database"
	"github.com/onvent/event-booking/internal/handler"
	"github.com/onvent/event-booking/internal/ledger"
	"github.com/onvent/event-booking/internal/queue"
	"github.com/onvent/event-booking/internal/repository"
	"github.com/onvent/event-booking/internal/router"
	"github.com/onvent/event-booking/internal/service"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// Redis is optional; limiter and availability cache degrade to
	// pass-through when it is absent.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and availability cache disabled")
	}

	repo := repository.New(db)
	lgr := ledger.New(repo)

	var notifier service.Notifier
	if cfg.AMQPURL != "" {
		notifier = queue.NewPublisher(cfg.AMQPURL)
		go queue.StartBookingConsumer(cfg.AMQPURL)
	} else {
		log.Println("AMQP_URL not set, confirmation dispatch disabled")
	}

	svc := service.NewBookingService(repo, lgr, clock.NewSystem(), notifier)

	e := echo.New()
	e.HideBanner = true

	authH := handler.NewAuthHandler(cfg, repo)
	bookH := handler.NewBookingHandler(svc, repo, rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterBooking(e, bookH, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
