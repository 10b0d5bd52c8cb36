package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yacosta738/go-shopping-cart/internal/cart"
	"github.com/yacosta738/go-shopping-cart/internal/config"
	kafkax "github.com/yacosta738/go-shopping-cart/internal/kafka"
	"github.com/yacosta738/go-shopping-cart/internal/postgres"
	"github.com/yacosta738/go-shopping-cart/internal/receipts"
	"github.com/yacosta738/go-shopping-cart/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName+"-receipts").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &receipts.Service{
		Repo:        &receipts.PgRepo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-receipts",
		Log:         logger,
	}

	group := getenv("RECEIPTS_GROUP", "receipts-svc")
	workers := mustAtoi(os.Getenv("RECEIPTS_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, cart.TopicCartCheckedOut, workers)

	go func() {
		logger.Info().Str("group", group).Str("topic", cart.TopicCartCheckedOut).Int("workers", workers).Msg("receipts consumer started")
		if err := cons.Start(ctx, svc.HandleCheckedOut); err != nil {
			logger.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down consumer...")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
