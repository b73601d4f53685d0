package session

import (
	"time"

	"github.com/park285/xo-messenger-bot/internal/board"
)

// Status represents a session lifecycle state.
type Status string

const (
	StatusInactive   Status = "INACTIVE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusWon        Status = "WON"
	StatusDrawn      Status = "DRAWN"
)

// Terminal reports whether no further move may be applied until a new game starts.
func (s Status) Terminal() bool { return s == StatusWon || s == StatusDrawn }

// Session is the persisted game state of one conversation.
type Session struct {
	ConversationID string      `json:"conversation_id"`
	GameID         string      `json:"game_id"`
	Board          board.Board `json:"-"`
	Cells          []string    `json:"board"`
	CurrentMark    board.Mark  `json:"current_mark"`
	Status         Status      `json:"status"`
	Winner         board.Mark  `json:"winner,omitempty"`
	// Players maps a mark to the participant bound to it. O stays empty until the first opposing move.
	Players   map[board.Mark]string `json:"players"`
	Moves     []int                 `json:"moves"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Active reports whether moves are accepted.
func (s *Session) Active() bool { return s != nil && s.Status == StatusInProgress }

// Player returns the participant bound to m, or "".
func (s *Session) Player(m board.Mark) string {
	if s == nil || s.Players == nil {
		return ""
	}
	return s.Players[m]
}

// Clone returns a deep copy so callers may mutate freely.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Cells = append([]string(nil), s.Cells...)
	c.Moves = append([]int(nil), s.Moves...)
	c.Players = make(map[board.Mark]string, len(s.Players))
	for k, v := range s.Players {
		c.Players[k] = v
	}
	return &c
}

// syncCells copies the typed board into its persisted representation.
func (s *Session) syncCells() { s.Cells = s.Board.Strings() }

// syncBoard restores the typed board after decoding.
func (s *Session) syncBoard() {
	s.Board = board.FromStrings(s.Cells)
	if s.Players == nil {
		s.Players = map[board.Mark]string{}
	}
}
