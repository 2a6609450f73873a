package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/aircargo/config"
	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Locker is a cooperative advisory lock: Acquire returns false when the key
// is already held, and the TTL bounds how long a crashed holder can block
// others. Backed by redis here and by an in-process mutex map in
// MemoryLocker.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
	routesTTL  time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL, routesTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
		routesTTL:  routesTTL,
	}
}

func (c *RedisCache) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

func (c *RedisCache) Release(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) GetRoutes(ctx context.Context, origin, destination string, date time.Time) (*domain.RouteOptions, error) {
	data, err := c.client.Get(ctx, routesKey(origin, destination, date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var routes domain.RouteOptions
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, err
	}
	return &routes, nil
}

func (c *RedisCache) SetRoutes(ctx context.Context, origin, destination string, date time.Time, routes *domain.RouteOptions) error {
	payload, err := json.Marshal(routes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, routesKey(origin, destination, date), payload, c.routesTTL).Err()
}

// InvalidateFlights drops the cached flight list; called after capacity
// changes so stale availability is short-lived.
func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func routesKey(origin, destination string, date time.Time) string {
	return fmt.Sprintf("cache:routes:%s:%s:%s", origin, destination, date.Format("2006-01-02"))
}

func FlightLockKey(flightID int64) string {
	return fmt.Sprintf("lock:flight:%d", flightID)
}

func BookingLockKey(refID string) string {
	return fmt.Sprintf("lock:booking:%s", refID)
}

var _ Locker = (*RedisCache)(nil)
