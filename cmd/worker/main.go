package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/minimall/order-backend/internal/aws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.With().Str("service", "order-worker").Logger()

	queueURL := os.Getenv("ORDERS_QUEUE_URL")
	if queueURL == "" {
		zlog.Fatal().Msg("ORDERS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := aws.NewClients(ctx, "", "")
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to init aws clients")
	}

	poller := NewPoller(clients.SQS, clients.CloudWatch, queueURL)

	zlog.Info().Str("queue", queueURL).Msg("starting order event worker")
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Fatal().Err(err).Msg("worker exited")
	}
	zlog.Info().Msg("worker stopped")
}
