package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultReviewer is recorded when a decision names no reviewer.
const DefaultReviewer = "HITL"

// ReviewItem is the table independent view the review queue works on.
// Key is the username for outreach and the order id for fulfillment.
type ReviewItem struct {
	Table      ReviewTable `db:"-" json:"table"`
	ID         uuid.UUID   `db:"id" json:"id"`
	Seq        int64       `db:"seq" json:"seq"`
	CreatedAt  time.Time   `db:"created_at" json:"timestamp"`
	Key        string      `db:"key" json:"key"`
	Recipient  string      `db:"recipient" json:"recipient"`
	FirstName  string      `db:"first_name" json:"first_name,omitempty"`
	Channel    Channel     `db:"channel" json:"channel"`
	Subject    string      `db:"subject" json:"subject"`
	Message    string      `db:"message" json:"message"`
	Status     Status      `db:"status" json:"status"`
	Version    int         `db:"version" json:"version"`
	ReviewedBy string      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	DecidedAt  *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	SentAt     *time.Time  `db:"sent_at" json:"sent_at,omitempty"`
}

// Decision is a reviewer's verdict on a QUEUED item. Nil edit fields keep
// the stored value. ExpectedVersion of zero skips the version check.
type Decision struct {
	Status          Status
	ExpectedVersion int
	Subject         *string
	Message         *string
	ReviewedBy      string
	DecidedAt       time.Time
}

// SendJob asks the sender to deliver an approved item.
type SendJob struct {
	Table ReviewTable `json:"table"`
	ID    uuid.UUID   `json:"id"`
}
