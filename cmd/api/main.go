package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yacosta738/go-shopping-cart/internal/auth"
	"github.com/yacosta738/go-shopping-cart/internal/cart"
	"github.com/yacosta738/go-shopping-cart/internal/catalog"
	"github.com/yacosta738/go-shopping-cart/internal/config"
	"github.com/yacosta738/go-shopping-cart/internal/httpx"
	kafkax "github.com/yacosta738/go-shopping-cart/internal/kafka"
	"github.com/yacosta738/go-shopping-cart/internal/postgres"
	"github.com/yacosta738/go-shopping-cart/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName).Logger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for checkout events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, cart.TopicCartCheckedOut, 1024)
	prod.Start(ctx)

	// Wiring
	products := &catalog.Repo{DB: db}
	carts := &cart.Service{
		Store:   &cart.PgStore{DB: db},
		Catalog: products,
		Events:  &cart.KafkaPublisher{Producer: prod, Service: cfg.ServiceName},
		Totals:  &cart.RedisTotals{Client: rdb},
		Log:     logger,
	}
	tokens := &auth.TokenProvider{Secret: []byte(cfg.JWTSecret), Validity: cfg.TokenTTL}

	router := httpx.NewRouter(cfg.CORSOrigins)
	(&httpx.AuthHandler{Tokens: tokens}).Register(router)
	(&httpx.ProductsHandler{Catalog: products}).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(httpx.RequireAuth(tokens))
		(&httpx.CartsHandler{Carts: carts}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
