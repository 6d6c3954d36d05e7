package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/twopeaks/controlroom/internal/model"
)

type OutboxRepository struct {
	DB *sqlx.DB
}

// FetchUnpublished returns the oldest unpublished events. A single relay
// process is expected per database.
func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	events := []model.OutboxEvent{}
	query := `
        SELECT id, event_type, partition_key, payload, created_at, published_at, attempts, last_error
        FROM outbox_events
        WHERE published_at IS NULL
        ORDER BY id
        LIMIT $1
    `
	err := r.DB.SelectContext(ctx, &events, query, limit)
	return events, err
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE outbox_events SET published_at = $1, attempts = attempts + 1, last_error = '' WHERE id = $2`, at, id)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, lastError string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE outbox_events SET attempts = attempts + 1, last_error = $1 WHERE id = $2`, lastError, id)
	return err
}

var _ OutboxRepositoryInterface = (*OutboxRepository)(nil)
