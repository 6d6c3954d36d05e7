package model

import (
	"time"

	"github.com/google/uuid"
)

type SupportTicket struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Seq               int64     `db:"seq" json:"seq"`
	Timestamp         time.Time `db:"created_at" json:"timestamp"`
	SessionID         string    `db:"session_id" json:"session_id"`
	UserQuery         string    `db:"user_query" json:"user_query"`
	AssistantResponse string    `db:"assistant_response" json:"assistant_response"`
}

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the per-conversation context handed to support handlers.
type Session struct {
	ID        string     `json:"id"`
	History   []ChatTurn `json:"history"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Append adds a turn and keeps at most limit turns.
func (s *Session) Append(limit int, turns ...ChatTurn) {
	s.History = append(s.History, turns...)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]ChatTurn(nil), s.History[len(s.History)-limit:]...)
	}
}
