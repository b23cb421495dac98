package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/minimall/order-backend/internal/aws"
	"github.com/minimall/order-backend/internal/cart"
	"github.com/minimall/order-backend/internal/config"
	"github.com/minimall/order-backend/internal/coupons"
	"github.com/minimall/order-backend/internal/events"
	"github.com/minimall/order-backend/internal/handlers"
	"github.com/minimall/order-backend/internal/lifecycle"
	"github.com/minimall/order-backend/internal/orders"
	"github.com/minimall/order-backend/internal/payments"
	"github.com/minimall/order-backend/internal/sharding"
	"github.com/minimall/order-backend/internal/users"
	"github.com/minimall/order-backend/migrations"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.With().Str("service", "order-api").Logger()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	clients, err := aws.NewClients(ctx, cfg.ShardAEndpoint, cfg.ShardBEndpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to init aws clients")
	}

	if err := runMigrations(cfg.PostgresDSN); err != nil {
		zlog.Fatal().Err(err).Msg("failed to run migrations")
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	router := sharding.NewRouter(
		&sharding.Shard{Name: "shard-a", DB: clients.OrderShardA},
		&sharding.Shard{Name: "shard-b", DB: clients.OrderShardB},
		cfg.EarliestOrderYear,
	)

	cartStore := cart.NewStore(rdb)
	couponStore := coupons.NewStore(pool)

	var publisher lifecycle.EventPublisher
	if cfg.OrdersQueueURL != "" {
		publisher = events.NewPublisher(clients.SQS, cfg.OrdersQueueURL)
	} else {
		zlog.Warn().Msg("ORDERS_QUEUE_URL not set; order events disabled")
	}

	svc := lifecycle.NewService(lifecycle.Config{
		Orders:    orders.NewStore(router),
		Users:     users.NewStore(pool),
		Coupons:   couponStore,
		Cart:      cartStore,
		Verifier:  payments.NewVerifier(cfg.PaymentConfirmURL, cfg.PaymentSecretKey),
		Publisher: publisher,
	})

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.Register(r, handlers.Config{
		Lifecycle: svc,
		Cart:      cartStore,
		Coupons:   couponStore,
	})

	zlog.Info().Str("addr", cfg.HTTPAddr).Msg("starting order api")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		zlog.Fatal().Err(err).Msg("server exited")
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
