package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/metrics"
	"github.com/twopeaks/controlroom/internal/repository"
)

// OutboxWorker relays review events committed alongside decisions.
type OutboxWorker struct {
	outbox    repository.OutboxRepositoryInterface
	publisher Publisher
	interval  time.Duration
	batchSize int
}

func NewOutboxWorker(outbox repository.OutboxRepositoryInterface, publisher Publisher, interval time.Duration, batchSize int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		outbox: outbox, publisher: publisher, interval: interval, batchSize: batchSize,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("outbox iteration failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce publishes one batch and returns how many events went out.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	records, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	published := 0
	for _, rec := range records {
		err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
		metrics.RecordOutbox(rec.EventType, err)
		if err != nil {
			log.Warn().Err(err).Int64("outbox_id", rec.ID).Str("event_type", rec.EventType).Msg("outbox publish failed")
			_ = w.outbox.MarkFailed(ctx, rec.ID, err.Error(), now)
			continue
		}
		_ = w.outbox.MarkPublished(ctx, rec.ID, now)
		published++
	}
	return published, nil
}
