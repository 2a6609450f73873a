package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/aircargo/config"
	"github.com/Domenick1991/aircargo/internal/cache"
	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/Domenick1991/aircargo/internal/email"
	"github.com/Domenick1991/aircargo/internal/kafka"
	"github.com/Domenick1991/aircargo/internal/repository"
	"github.com/Domenick1991/aircargo/internal/service/booking"
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
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		booking.WithLockPolicy(cfg.Booking.LockTTL(), cfg.Booking.LockRetryAttempts, cfg.Booking.LockRetryBackoff()),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, emailSender.Send); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.DelaySweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	threshold := time.Duration(cfg.Worker.DelayThresholdHours) * time.Hour

	for {
		select {
		case <-sweepTicker.C:
			marked, err := sweepDelayed(ctx, bookingRepo, bookingService, threshold)
			if err != nil {
				log.Printf("delay sweep error: %v", err)
				continue
			}
			if marked > 0 {
				log.Printf("marked %d bookings as delayed", marked)
			}
		case <-ctx.Done():
			log.Printf("shutting down")
			return
		}
	}
}

// sweepDelayed appends a DELAYED event to every booking that has been stuck
// in DEPARTED longer than the threshold. Bookings locked by an in-flight
// transition are skipped and picked up on the next sweep.
func sweepDelayed(ctx context.Context, repo repository.BookingRepository, svc booking.BookingUseCase, threshold time.Duration) (int, error) {
	stale, err := repo.ListDepartedBefore(ctx, time.Now().Add(-threshold))
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, b := range stale {
		if _, err := svc.MarkDelayed(ctx, b.RefID, "", ""); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			log.Printf("mark delayed %s: %v", b.RefID, err)
			continue
		}
		marked++
	}
	return marked, nil
}
