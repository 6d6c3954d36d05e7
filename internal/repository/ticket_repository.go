package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/twopeaks/controlroom/internal/model"
)

// TicketRepository is the append-only support ticket log.
type TicketRepository struct {
	DB *sqlx.DB
}

func (r *TicketRepository) CreateTicket(ctx context.Context, t *model.SupportTicket) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	query := `
        INSERT INTO support_tickets (id, created_at, session_id, user_query, assistant_response)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING seq
    `
	return r.DB.QueryRowxContext(ctx, query, t.ID, t.Timestamp, t.SessionID, t.UserQuery, t.AssistantResponse).Scan(&t.Seq)
}

func (r *TicketRepository) ListTickets(ctx context.Context) ([]model.SupportTicket, error) {
	tickets := []model.SupportTicket{}
	err := r.DB.SelectContext(ctx, &tickets, `
        SELECT id, seq, created_at, session_id, user_query, assistant_response
        FROM support_tickets
        ORDER BY seq
    `)
	return tickets, err
}

var _ TicketRepositoryInterface = (*TicketRepository)(nil)
