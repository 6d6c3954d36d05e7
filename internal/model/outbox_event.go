package model

import (
	"encoding/json"
	"time"
)

const (
	EventReviewDecided = "review.decided"
	EventReviewSent    = "review.sent"
)

type OutboxEvent struct {
	ID           int64           `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	PartitionKey string          `db:"partition_key" json:"partition_key"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	PublishedAt  *time.Time      `db:"published_at" json:"published_at,omitempty"`
	Attempts     int             `db:"attempts" json:"attempts"`
	LastError    string          `db:"last_error" json:"last_error,omitempty"`
}

// ReviewEvent is the payload of review.* outbox events.
type ReviewEvent struct {
	Table      ReviewTable `json:"table"`
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	Channel    Channel     `json:"channel"`
	Status     Status      `json:"status"`
	Version    int         `json:"version"`
	ReviewedBy string      `json:"reviewed_by,omitempty"`
	At         time.Time   `json:"at"`
}

// NewReviewOutboxEvent builds the outbox row announcing item's new state.
func NewReviewOutboxEvent(eventType string, item ReviewItem, at time.Time) (OutboxEvent, error) {
	payload, err := json.Marshal(ReviewEvent{
		Table:      item.Table,
		ID:         item.ID.String(),
		Key:        item.Key,
		Channel:    item.Channel,
		Status:     item.Status,
		Version:    item.Version,
		ReviewedBy: item.ReviewedBy,
		At:         at,
	})
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		EventType:    eventType,
		PartitionKey: string(item.Table) + ":" + item.ID.String(),
		Payload:      payload,
		CreatedAt:    at,
	}, nil
}
