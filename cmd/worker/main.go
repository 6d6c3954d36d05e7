package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/app"
	"github.com/twopeaks/controlroom/internal/config"
	"github.com/twopeaks/controlroom/internal/events"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/queue"
)

// The worker delivers approved items from RabbitMQ and relays the review
// outbox. It needs the postgres store shared with the API.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("⚠️ No .env file found, relying on OS environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.SetupLogger(cfg.App)
	if cfg.App.StoreDriver != config.DriverPostgres {
		log.Fatal().Str("store", cfg.App.StoreDriver).Msg("the worker needs APP_STORE_DRIVER=postgres")
	}

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer deps.Close()

	rmq, err := queue.DialRabbitMQ(cfg.AMQP.URL, cfg.AMQP.Queue)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	svcs, err := deps.Services(rmq)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build services")
	}
	// jobs lost between a decision and its publish are picked up here
	for _, table := range []model.ReviewTable{model.TableOutreach, model.TableFulfillment} {
		n, err := svcs.Review.RequeueApproved(ctx, table)
		if err != nil {
			log.Warn().Err(err).Str("table", string(table)).Msg("requeue of approved items failed")
			continue
		}
		log.Info().Int("count", n).Str("table", string(table)).Msg("approved items requeued")
	}

	pub, closePub, err := deps.OutboxPublisher()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox publisher")
	}
	defer closePub()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		relay := events.NewOutboxWorker(deps.Store.Outbox, pub, cfg.Kafka.OutboxInterval, 0)
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("outbox relay stopped")
		}
	}()
	go func() {
		defer wg.Done()
		log.Info().Str("queue", cfg.AMQP.Queue).Msg("👷 worker running, waiting for send jobs")
		if err := rmq.Consume(ctx, deps.SendWorker()); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("consumer stopped")
			stop()
		}
	}()

	wg.Wait()
	log.Info().Msg("worker exited")
}
