package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/aircargo/api"
	"github.com/Domenick1991/aircargo/config"
	"github.com/Domenick1991/aircargo/internal/bootstrap"
	"github.com/Domenick1991/aircargo/internal/cache"
	"github.com/Domenick1991/aircargo/internal/kafka"
	"github.com/Domenick1991/aircargo/internal/repository"
	"github.com/Domenick1991/aircargo/internal/service/booking"
	"github.com/Domenick1991/aircargo/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second,
		time.Duration(cfg.Booking.RoutesCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	flightService := flights.NewFlightService(flightRepo, redisCache,
		flights.WithSearchBounds(cfg.Booking.MaxTransitRoutes, time.Duration(cfg.Booking.MinConnectionHours)*time.Hour))
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLockPolicy(cfg.Booking.LockTTL(), cfg.Booking.LockRetryAttempts, cfg.Booking.LockRetryBackoff()),
	)

	flightHandler := api.NewFlightHandler(flightService)
	bookingHandler := api.NewBookingHandler(bookingService)

	if err := bootstrap.Run(ctx, cfg, flightHandler, bookingHandler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
