// Package history records finished games per conversation.
package history

import (
	"context"
	"time"

	"github.com/park285/xo-messenger-bot/internal/board"
	"github.com/park285/xo-messenger-bot/internal/session"
)

// Outcome of a finished game.
type Outcome string

const (
	OutcomeWon   Outcome = "won"
	OutcomeDrawn Outcome = "drawn"
)

// Result is one finished game.
type Result struct {
	GameID         string     `json:"game_id"`
	ConversationID string     `json:"conversation_id"`
	Outcome        Outcome    `json:"outcome"`
	Winner         board.Mark `json:"winner,omitempty"`
	WinnerID       string     `json:"winner_id,omitempty"`
	PlayerX        string     `json:"player_x"`
	PlayerO        string     `json:"player_o"`
	Moves          []int      `json:"moves"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        time.Time  `json:"ended_at"`
}

// Repository stores results idempotently by game id.
type Repository interface {
	Record(ctx context.Context, r *Result) error
	Recent(ctx context.Context, conversationID string, limit int) ([]*Result, error)
}

// FromSession builds the result of a terminal session; ok is false while the game is still open.
func FromSession(s *session.Session) (r *Result, ok bool) {
	if s == nil || !s.Status.Terminal() {
		return nil, false
	}
	r = &Result{
		GameID:         s.GameID,
		ConversationID: s.ConversationID,
		Outcome:        OutcomeDrawn,
		PlayerX:        s.Player(board.X),
		PlayerO:        s.Player(board.O),
		Moves:          append([]int(nil), s.Moves...),
		StartedAt:      s.CreatedAt,
		EndedAt:        s.UpdatedAt,
	}
	if s.Status == session.StatusWon {
		r.Outcome = OutcomeWon
		r.Winner = s.Winner
		r.WinnerID = s.Player(s.Winner)
	}
	return r, true
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	if limit > 50 {
		return 50
	}
	return limit
}
