package model

import (
	"time"

	"github.com/google/uuid"
)

// EngagementEvent is a captured social comment. Immutable once written.
type EngagementEvent struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Seq         int64     `db:"seq" json:"seq"`
	Timestamp   time.Time `db:"occurred_at" json:"timestamp"`
	Username    string    `db:"username" json:"username"`
	CommentText string    `db:"comment_text" json:"comment_text"`
	Likes       int       `db:"likes" json:"likes"`
	Followers   int       `db:"followers" json:"followers"`
}

func (e EngagementEvent) SheetRow() []any {
	return []any{e.Timestamp.Format(time.RFC3339), e.Username, e.CommentText, e.Likes, e.Followers}
}
