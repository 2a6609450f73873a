package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	LockTTLSeconds     int `yaml:"lock_ttl_seconds"`
	LockRetryAttempts  int `yaml:"lock_retry_attempts"`
	LockRetryBackoffMs int `yaml:"lock_retry_backoff_ms"`
	RoutesCacheTTL     int `yaml:"routes_cache_ttl_seconds"`
	FlightsCacheTTL    int `yaml:"flights_cache_ttl_seconds"`
	MaxTransitRoutes   int `yaml:"max_transit_routes"`
	MinConnectionHours int `yaml:"min_connection_hours"`
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) LockRetryBackoff() time.Duration {
	return time.Duration(b.LockRetryBackoffMs) * time.Millisecond
}

type WorkerConfig struct {
	DelaySweepMinutes   int `yaml:"delay_sweep_minutes"`
	DelayThresholdHours int `yaml:"delay_threshold_hours"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Booking.LockTTLSeconds == 0 {
		c.Booking.LockTTLSeconds = 30
	}
	if c.Booking.LockRetryAttempts == 0 {
		c.Booking.LockRetryAttempts = 5
	}
	if c.Booking.LockRetryBackoffMs == 0 {
		c.Booking.LockRetryBackoffMs = 100
	}
	if c.Booking.RoutesCacheTTL == 0 {
		c.Booking.RoutesCacheTTL = 120
	}
	if c.Booking.FlightsCacheTTL == 0 {
		c.Booking.FlightsCacheTTL = 300
	}
	if c.Booking.MaxTransitRoutes == 0 {
		c.Booking.MaxTransitRoutes = 5
	}
	if c.Booking.MinConnectionHours == 0 {
		c.Booking.MinConnectionHours = 2
	}
	if c.Worker.DelaySweepMinutes == 0 {
		c.Worker.DelaySweepMinutes = 30
	}
	if c.Worker.DelayThresholdHours == 0 {
		c.Worker.DelayThresholdHours = 48
	}
}
