// Package app wires configuration into stores, clients and services for
// the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/cache"
	"github.com/twopeaks/controlroom/internal/config"
	"github.com/twopeaks/controlroom/internal/db"
	"github.com/twopeaks/controlroom/internal/events"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/service"
	"github.com/twopeaks/controlroom/internal/sheets"
)

var (
	_ service.LeaseStore   = (*cache.RedisLeaseStore)(nil)
	_ service.SessionStore = (*cache.RedisSessionStore)(nil)
)

// Deps are the long-lived dependencies shared by every binary.
type Deps struct {
	Config *config.Config
	Brand  config.Brand
	Store  *repository.Store
	// DB is nil with the memory store driver.
	DB       *sqlx.DB
	Redis    *redis.Client
	LLM      llm.Client
	Sheets   sheets.Client
	Mirror   *sheets.Mirror
	Leases   service.LeaseStore
	Sessions service.SessionStore
	Rand     *service.Rand
}

// Bootstrap opens the store and external clients named by cfg. Optional
// integrations that are not configured fall back to in-process versions.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Deps, error) {
	brand, err := config.LoadBrand(cfg.App.BrandFile)
	if err != nil {
		return nil, err
	}
	d := &Deps{Config: cfg, Brand: brand, Rand: service.NewRand(uint64(time.Now().UnixNano()))}

	switch cfg.App.StoreDriver {
	case config.DriverPostgres:
		conn, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		d.DB = conn
		d.Store = repository.NewPostgresStore(conn)
	default:
		log.Warn().Msg("⚠️ using the in-memory store, data is lost on exit")
		d.Store = repository.NewMemoryStore()
	}

	d.LLM = llm.New(cfg.OpenAI)

	if cfg.Sheets.Enabled() {
		client, err := sheets.NewGoogleClient(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ sheets mirror disabled")
		} else {
			d.Sheets = client
			d.Mirror = sheets.NewMirror(client)
			sheets.EnsureWorksheets(ctx, client)
		}
	}

	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = client
		d.Leases = cache.NewRedisLeaseStore(client)
		d.Sessions = cache.NewRedisSessionStore(client, cfg.Redis.SessionTTL)
		log.Info().Msg("✅ Connected to redis")
	} else {
		d.Leases = service.NewMemoryLeaseStore()
		d.Sessions = service.NewMemorySessionStore()
	}
	return d, nil
}

func (d *Deps) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}
}

// OutboxPublisher returns the Kafka publisher when brokers are configured,
// otherwise a publisher that only logs.
func (d *Deps) OutboxPublisher() (events.Publisher, func(), error) {
	brokers := d.Config.Kafka.BrokerList()
	if len(brokers) == 0 {
		return events.LogPublisher{}, func() {}, nil
	}
	pub, err := events.NewKafkaPublisher(brokers, d.Config.Kafka.TopicByEvent())
	if err != nil {
		return nil, nil, err
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka writer close failed")
		}
	}, nil
}
