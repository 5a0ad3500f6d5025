package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/nextwave/swim-school-booking/internal/billing"
	"github.com/nextwave/swim-school-booking/internal/config"
	"github.com/nextwave/swim-school-booking/internal/database"
	"github.com/nextwave/swim-school-booking/internal/handler"
	"github.com/nextwave/swim-school-booking/internal/middleware"
	"github.com/nextwave/swim-school-booking/internal/queue"
	"github.com/nextwave/swim-school-booking/internal/repository"
	"github.com/nextwave/swim-school-booking/internal/router"
	"github.com/nextwave/swim-school-booking/internal/service"
)

func main() {
	// A .env file is a development convenience; in production the
	// variables come from the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DBName); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	store := repository.NewSQLStore(db)

	var events queue.Publisher
	if cfg.AMQPURL != "" {
		events = queue.NewAMQPPublisher(cfg.AMQPURL)
		go queue.StartNotificationConsumer(cfg.AMQPURL)
	} else {
		log.Println("AMQP_URL not set, event publishing disabled")
	}

	provider := billing.NewHTTPProvider(cfg.BillingProviderURL, cfg.BillingProviderKey)

	bookings := service.NewBookingService(store, events)
	subscriptions := service.NewSubscriptionService(store, provider, events)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and catalog cache disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewCatalogCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Offerings:     handler.NewOfferingHandler(store),
		Bookings:      handler.NewBookingHandler(bookings, store),
		Promos:        handler.NewPromoHandler(store),
		Subscriptions: handler.NewSubscriptionHandler(subscriptions, store),
		Webhooks:      handler.NewWebhookHandler(subscriptions, cfg.WebhookSecret),
		Stats:         handler.NewStatsHandler(store),
	}, cfg.JWTSecret, limiter, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
