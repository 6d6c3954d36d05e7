package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/twopeaks/controlroom/internal/model"
)

type LeadRepository struct {
	DB *sqlx.DB
}

func (r *LeadRepository) CreateLead(ctx context.Context, lead *model.ScoredLead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	query := `
        INSERT INTO scored_leads (id, event_id, occurred_at, username, comment_text, likes, followers, score, reason, score_source)
        VALUES (:id, :event_id, :occurred_at, :username, :comment_text, :likes, :followers, :score, :reason, :score_source)
        RETURNING seq
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, lead)
	if err != nil {
		return fmt.Errorf("insert scored lead: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&lead.Seq); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *LeadRepository) ListLeads(ctx context.Context, minScore int) ([]model.ScoredLead, error) {
	leads := []model.ScoredLead{}
	query := `
        SELECT id, seq, event_id, occurred_at, username, comment_text, likes, followers, score, reason, score_source
        FROM scored_leads
        WHERE score >= $1
        ORDER BY seq
    `
	err := r.DB.SelectContext(ctx, &leads, query, minScore)
	return leads, err
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
