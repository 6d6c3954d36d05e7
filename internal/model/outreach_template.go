package model

import (
	"time"

	"github.com/google/uuid"
)

// OutreachTemplate is a drafted message to a qualified lead awaiting review.
type OutreachTemplate struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Seq        int64      `db:"seq" json:"seq"`
	CreatedAt  time.Time  `db:"created_at" json:"timestamp"`
	Username   string     `db:"username" json:"username"`
	Channel    Channel    `db:"channel" json:"channel"`
	Subject    string     `db:"subject" json:"subject"`
	Message    string     `db:"message" json:"message"`
	Status     Status     `db:"status" json:"status"`
	Version    int        `db:"version" json:"version"`
	ReviewedBy string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	DecidedAt  *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	SentAt     *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

func (t OutreachTemplate) ReviewItem() ReviewItem {
	return ReviewItem{
		Table:      TableOutreach,
		ID:         t.ID,
		Seq:        t.Seq,
		CreatedAt:  t.CreatedAt,
		Key:        t.Username,
		Recipient:  t.Username,
		Channel:    t.Channel,
		Subject:    t.Subject,
		Message:    t.Message,
		Status:     t.Status,
		Version:    t.Version,
		ReviewedBy: t.ReviewedBy,
		DecidedAt:  t.DecidedAt,
		SentAt:     t.SentAt,
	}
}

func (t OutreachTemplate) SheetRow() []any {
	return []any{t.CreatedAt.Format(time.RFC3339), t.Username, string(t.Channel), t.Subject, t.Message, string(t.Status)}
}
