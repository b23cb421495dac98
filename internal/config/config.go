package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything the binaries read from the environment. A .env
// file in the working directory is honored for local development.
type Config struct {
	HTTPAddr string

	// EarliestOrderYear bounds partition scans from below; it is the year the
	// order store went live.
	EarliestOrderYear int

	// Per-shard DynamoDB endpoint overrides; empty uses the default regional
	// endpoint.
	ShardAEndpoint string
	ShardBEndpoint string

	PostgresDSN string
	RedisAddr   string

	OrdersQueueURL string

	PaymentConfirmURL string
	PaymentSecretKey  string
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:          envOr("HTTP_ADDR", ":8080"),
		ShardAEndpoint:    os.Getenv("ORDERS_SHARD_A_ENDPOINT"),
		ShardBEndpoint:    os.Getenv("ORDERS_SHARD_B_ENDPOINT"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		OrdersQueueURL:    os.Getenv("ORDERS_QUEUE_URL"),
		PaymentConfirmURL: envOr("PAYMENT_CONFIRM_URL", "https://api.tosspayments.com/v1/payments/confirm"),
		PaymentSecretKey:  os.Getenv("PAYMENT_SECRET_KEY"),
	}

	year, err := strconv.Atoi(envOr("EARLIEST_ORDER_YEAR", "2024"))
	if err != nil {
		return Config{}, fmt.Errorf("parse EARLIEST_ORDER_YEAR: %w", err)
	}
	cfg.EarliestOrderYear = year

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
