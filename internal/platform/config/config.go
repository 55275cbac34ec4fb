package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server reads from the environment so main
// stays lean. Empty DSNs fall back to in-memory implementations, letting the
// binary run standalone.
type Config struct {
	Addr string

	// PostgresURL is the DSN for the authoritative store. Empty means
	// in-memory stores.
	PostgresURL string

	// Redis carries the optional cross-instance feed bridge settings.
	Redis RedisConfig

	// KafkaBrokers enables the feed archive when non-empty.
	KafkaBrokers []string
	// KafkaTopic is the archive topic for committed feed events.
	KafkaTopic string

	// CapacityMin and CapacityMax bound the configurable group size.
	CapacityMin int
	CapacityMax int

	// SweepInterval controls the lifecycle sweeper cadence. Zero disables it;
	// status derivation on reads keeps results correct either way.
	SweepInterval time.Duration

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig mirrors the knobs the redis client wrapper applies.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("CABSHARE_ADDR", ":8080"),
		PostgresURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaTopic:      envOr("KAFKA_EVENTS_TOPIC", "cabshare.events"),
		CapacityMin:     envIntOr("CAPACITY_MIN", 2),
		CapacityMax:     envIntOr("CAPACITY_MAX", 6),
		SweepInterval:   envDurationOr("LIFECYCLE_SWEEP_INTERVAL", time.Minute),
		RequestTimeout:  envDurationOr("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: envDurationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
