package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"escrow-service/internal/adapter/postgres"
	"escrow-service/internal/feed"
	"escrow-service/internal/infra"
	"escrow-service/internal/mq"
	"escrow-service/internal/outbox"
)

// feedQueue is the durable queue the projector consumes from. The "#"
// binding subscribes it to every event kind on the exchange.
const (
	feedQueue      = "feed.projector"
	feedRoutingKey = "#"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("component", "worker").Logger()

	if cfg.StoreDriver != infra.StoreDriverPostgres {
		logger.Fatal().Msg("worker: requires STORE_DRIVER=postgres, the outbox lives in the database")
	}
	if cfg.AMQPURL == "" {
		logger.Fatal().Msg("worker: AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	publisher, err := mq.NewPublisher(cfg.AMQPURL, cfg.EventExchange)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: broker connection failed")
	}
	defer publisher.Close()

	dispatcher := outbox.NewDispatcher(postgres.NewOutboxStore(pool), publisher, logger).
		WithInterval(cfg.OutboxInterval).
		WithBatchSize(cfg.OutboxBatchSize).
		WithMaxAttempts(cfg.OutboxMaxAttempts)

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer rdb.Close()

	projector := feed.NewProjector(
		feed.NewRedisStore(rdb),
		feed.NewFormatter(cfg.DefaultLocale),
		cfg.FeedMaxEntries,
		logger,
	)

	consumer, err := mq.NewConsumer(cfg.AMQPURL, cfg.EventExchange, feedQueue, feedRoutingKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: consumer setup failed")
	}
	defer consumer.Close()
	consumer.SetHandler(projector.Handle)

	go dispatcher.Start(ctx)

	logger.Info().
		Str("exchange", cfg.EventExchange).
		Str("queue", feedQueue).
		Msg("worker started")

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: consumer stopped")
	}
	logger.Info().Msg("worker stopped")
}
