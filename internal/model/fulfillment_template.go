package model

import (
	"time"

	"github.com/google/uuid"
)

// FulfillmentTemplate is a post-purchase email awaiting review.
type FulfillmentTemplate struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Seq        int64      `db:"seq" json:"seq"`
	CreatedAt  time.Time  `db:"created_at" json:"timestamp"`
	OrderID    string     `db:"order_id" json:"order_id"`
	Email      string     `db:"email" json:"email"`
	FirstName  string     `db:"first_name" json:"first_name"`
	Subject    string     `db:"subject" json:"subject"`
	Message    string     `db:"message" json:"message"`
	Status     Status     `db:"status" json:"status"`
	Version    int        `db:"version" json:"version"`
	ReviewedBy string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	DecidedAt  *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	SentAt     *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

func (t FulfillmentTemplate) ReviewItem() ReviewItem {
	return ReviewItem{
		Table:      TableFulfillment,
		ID:         t.ID,
		Seq:        t.Seq,
		CreatedAt:  t.CreatedAt,
		Key:        t.OrderID,
		Recipient:  t.Email,
		FirstName:  t.FirstName,
		Channel:    ChannelEmail,
		Subject:    t.Subject,
		Message:    t.Message,
		Status:     t.Status,
		Version:    t.Version,
		ReviewedBy: t.ReviewedBy,
		DecidedAt:  t.DecidedAt,
		SentAt:     t.SentAt,
	}
}

func (t FulfillmentTemplate) SheetRow() []any {
	sent := ""
	if t.SentAt != nil {
		sent = t.SentAt.Format(time.RFC3339)
	}
	return []any{t.CreatedAt.Format(time.RFC3339), t.OrderID, t.Email, t.FirstName, t.Subject, t.Message, string(t.Status), t.ReviewedBy, sent}
}
