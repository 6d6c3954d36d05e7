package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/twopeaks/controlroom/internal/model"
)

type EngagementRepository struct {
	DB *sqlx.DB
}

const engagementColumns = `id, seq, occurred_at, username, comment_text, likes, followers`

func (r *EngagementRepository) CreateEvent(ctx context.Context, ev *model.EngagementEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	query := `
        INSERT INTO engagement_events (id, occurred_at, username, comment_text, likes, followers)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING seq
    `
	if err := r.DB.QueryRowxContext(ctx, query, ev.ID, ev.Timestamp, ev.Username, ev.CommentText, ev.Likes, ev.Followers).Scan(&ev.Seq); err != nil {
		return fmt.Errorf("insert engagement event: %w", err)
	}
	return nil
}

func (r *EngagementRepository) ListEvents(ctx context.Context) ([]model.EngagementEvent, error) {
	events := []model.EngagementEvent{}
	err := r.DB.SelectContext(ctx, &events, `SELECT `+engagementColumns+` FROM engagement_events ORDER BY seq`)
	return events, err
}

func (r *EngagementRepository) ListUnscored(ctx context.Context) ([]model.EngagementEvent, error) {
	events := []model.EngagementEvent{}
	query := `
        SELECT e.id, e.seq, e.occurred_at, e.username, e.comment_text, e.likes, e.followers
        FROM engagement_events e
        LEFT JOIN scored_leads l ON l.event_id = e.id
        WHERE l.id IS NULL
        ORDER BY e.seq
    `
	err := r.DB.SelectContext(ctx, &events, query)
	return events, err
}

func (r *EngagementRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM engagement_events WHERE username = $1)`, username)
	return exists, err
}

var _ EngagementRepositoryInterface = (*EngagementRepository)(nil)
