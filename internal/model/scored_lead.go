package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 10

	DefaultScore  = 5
	DefaultReason = "Neutral comment."
)

// ScoredLead is an engagement event with a purchase-interest score.
type ScoredLead struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Seq         int64       `db:"seq" json:"seq"`
	EventID     uuid.UUID   `db:"event_id" json:"event_id"`
	Timestamp   time.Time   `db:"occurred_at" json:"timestamp"`
	Username    string      `db:"username" json:"username"`
	CommentText string      `db:"comment_text" json:"comment_text"`
	Likes       int         `db:"likes" json:"likes"`
	Followers   int         `db:"followers" json:"followers"`
	Score       int         `db:"score" json:"score"`
	Reason      string      `db:"reason" json:"reason"`
	ScoreSource ScoreSource `db:"score_source" json:"score_source"`
}

// NewScoredLead copies the event fields onto a lead.
func NewScoredLead(ev EngagementEvent, score int, reason string, source ScoreSource) ScoredLead {
	return ScoredLead{
		EventID:     ev.ID,
		Timestamp:   ev.Timestamp,
		Username:    ev.Username,
		CommentText: ev.CommentText,
		Likes:       ev.Likes,
		Followers:   ev.Followers,
		Score:       ClampScore(score),
		Reason:      reason,
		ScoreSource: source,
	}
}

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func (l ScoredLead) SheetRow() []any {
	return []any{l.Timestamp.Format(time.RFC3339), l.Username, l.CommentText, l.Likes, l.Followers, l.Score, l.Reason}
}
