package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/twopeaks/controlroom/internal/app"
	"github.com/twopeaks/controlroom/internal/config"
	"github.com/twopeaks/controlroom/internal/controller"
	"github.com/twopeaks/controlroom/internal/events"
	"github.com/twopeaks/controlroom/internal/handler"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/queue"
)

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

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer deps.Close()

	// sends outlive the signal context so queued retries can drain
	sendCtx, cancelSends := context.WithCancel(context.Background())
	defer cancelSends()

	var publisher queue.Publisher
	var memQueue *queue.InMemoryQueue
	switch cfg.App.QueueDriver {
	case config.DriverRabbitMQ:
		rmq, err := queue.DialRabbitMQ(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		publisher = rmq
	default:
		memQueue = queue.NewInMemoryQueue()
		if err := queue.StartSendSubscriber(sendCtx, memQueue, deps.SendWorker()); err != nil {
			log.Fatal().Err(err).Msg("failed to start send subscriber")
		}
		publisher = memQueue
		// single process mode: the API process also relays the outbox
		go runOutboxRelay(ctx, deps)
	}

	svcs, err := deps.Services(publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build services")
	}
	svcs.LoadFAQ(ctx, cfg.App.FAQDir)

	if cfg.App.QueueDriver == config.DriverMemory {
		for _, table := range []model.ReviewTable{model.TableOutreach, model.TableFulfillment} {
			if n, err := svcs.Review.RequeueApproved(ctx, table); err != nil {
				log.Warn().Err(err).Str("table", string(table)).Msg("requeue of approved items failed")
			} else if n > 0 {
				log.Info().Int("count", n).Str("table", string(table)).Msg("requeued approved items")
			}
		}
	}

	health := &handler.HealthHandler{Driver: cfg.App.StoreDriver}
	if deps.DB != nil {
		health.DB = deps.DB
	}
	router := &handler.Router{
		Health: health,
		Pipeline: &controller.PipelineController{
			EngagementService: svcs.Engagement,
			ScoringService:    svcs.Scoring,
			GenerationService: svcs.Generation,
		},
		Review:    &controller.ReviewController{ReviewService: svcs.Review},
		Orders:    &controller.OrderController{FulfillmentService: svcs.Fulfillment},
		Support:   &handler.SupportHandler{Service: svcs.Support},
		Analytics: &handler.AnalyticsHandler{Insights: svcs.Insights, Finance: svcs.Finance},
	}

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Handler:        h2c.NewHandler(router.Handler(), &http2.Server{}),
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("store", cfg.App.StoreDriver).Str("queue", cfg.App.QueueDriver).Msg("🚀 control room API running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if memQueue != nil {
		if err := memQueue.Drain(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("⚠️ send queue not drained, approved items are requeued on next start")
		}
	}
	log.Info().Msg("server exited gracefully")
}

func runOutboxRelay(ctx context.Context, deps *app.Deps) {
	pub, closePub, err := deps.OutboxPublisher()
	if err != nil {
		log.Error().Err(err).Msg("outbox relay disabled")
		return
	}
	defer closePub()
	relay := events.NewOutboxWorker(deps.Store.Outbox, pub, deps.Config.Kafka.OutboxInterval, 0)
	if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("outbox relay stopped")
	}
}
