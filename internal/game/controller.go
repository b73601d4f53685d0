// Package game drives the per-conversation tic-tac-toe state machine.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/xo-messenger-bot/internal/board"
	"github.com/park285/xo-messenger-bot/internal/command"
	"github.com/park285/xo-messenger-bot/internal/history"
	"github.com/park285/xo-messenger-bot/internal/msgcat"
	"github.com/park285/xo-messenger-bot/internal/obslog"
	"github.com/park285/xo-messenger-bot/internal/session"
)

var (
	ErrNoActiveGame  = errors.New("no active game")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrInvalidMove   = errors.New("invalid move")
	ErrAlreadyActive = errors.New("game already in progress")
	// ErrUnavailable wraps store failures. The user only sees the generic apology.
	ErrUnavailable = errors.New("game state unavailable")
)

// Request is one interpreted inbound message.
type Request struct {
	ConversationID string
	SenderID       string
	Command        command.Command
}

// Reply is what the controller wants sent back to the conversation.
type Reply struct {
	Text string
	// Err is nil for accepted commands, one of the gameplay sentinels for rejections and wraps
	// ErrUnavailable for operational failures.
	Err error
	// Session is the state after the command, nil when none exists or it could not be read.
	Session *session.Session
}

type Config struct {
	BotName      string
	HistoryLimit int
	// Clock and NewID default to time.Now and uuid.NewString.
	Clock func() time.Time
	NewID func() string
}

type Controller struct {
	store   session.Store
	results history.Repository
	cat     *msgcat.Catalog
	cfg     Config
	logger  *zap.Logger
}

// NewController wires the controller. results may be nil to disable the ledger.
func NewController(store session.Store, results history.Repository, cat *msgcat.Catalog, cfg Config, logger *zap.Logger) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 5
	}
	if logger == nil {
		logger = obslog.L()
	}
	return &Controller{store: store, results: results, cat: cat, cfg: cfg, logger: logger}
}

// Handle runs one command. It never returns a nil reply.
func (c *Controller) Handle(ctx context.Context, req Request) *Reply {
	convID := strings.TrimSpace(req.ConversationID)
	if convID == "" {
		convID = strings.TrimSpace(req.SenderID)
	}
	switch req.Command.Kind {
	case command.StartGame:
		return c.start(ctx, convID, req)
	case command.MakeMove:
		return c.move(ctx, convID, req)
	case command.ShowBoard:
		return c.showBoard(ctx, convID, req)
	case command.ShowHistory:
		return c.showHistory(ctx, convID, req)
	default:
		return &Reply{Text: c.text(msgcat.KeyHelp, c.view(nil))}
	}
}

func (c *Controller) start(ctx context.Context, convID string, req Request) *Reply {
	var created bool
	s, err := c.store.Update(ctx, convID, func(cur *session.Session) (*session.Session, error) {
		created = false
		if cur.Active() {
			return nil, nil
		}
		created = true
		now := c.cfg.Clock()
		return &session.Session{
			GameID:      c.cfg.NewID(),
			CurrentMark: board.X,
			Status:      session.StatusInProgress,
			Players:     map[board.Mark]string{board.X: req.SenderID},
			Moves:       []int{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	})
	if err != nil {
		return c.unavailable(convID, req, err)
	}
	if !created {
		c.logger.Debug("game_start_ignored",
			zap.String("conversation_id", convID),
			zap.String("sender_id", req.SenderID),
			zap.String("game_id", s.GameID),
		)
		return &Reply{Text: c.text(msgcat.KeyStartActive, c.view(s)), Err: ErrAlreadyActive, Session: s}
	}
	c.logger.Info("game_started",
		zap.String("conversation_id", convID),
		zap.String("sender_id", req.SenderID),
		zap.String("game_id", s.GameID),
	)
	return &Reply{Text: c.text(msgcat.KeyStartOK, c.view(s)), Session: s}
}

func (c *Controller) move(ctx context.Context, convID string, req Request) *Reply {
	cell := req.Command.Cell
	var rejected error
	s, err := c.store.Update(ctx, convID, func(cur *session.Session) (*session.Session, error) {
		next, rej := c.applyMove(cur, req.SenderID, cell)
		rejected = rej
		return next, nil
	})
	if err != nil {
		return c.unavailable(convID, req, err)
	}
	if rejected != nil {
		c.logger.Debug("game_move_rejected",
			zap.String("conversation_id", convID),
			zap.String("sender_id", req.SenderID),
			zap.Int("cell", cell),
			zap.String("reason", rejected.Error()),
		)
		return c.rejection(rejected, s)
	}

	c.logger.Info("game_move",
		zap.String("conversation_id", convID),
		zap.String("sender_id", req.SenderID),
		zap.String("game_id", s.GameID),
		zap.Int("cell", cell),
		zap.String("status", string(s.Status)),
	)
	switch s.Status {
	case session.StatusWon:
		c.record(ctx, s)
		return &Reply{Text: c.text(msgcat.KeyMoveWon, c.view(s)), Session: s}
	case session.StatusDrawn:
		c.record(ctx, s)
		return &Reply{Text: c.text(msgcat.KeyMoveDrawn, c.view(s)), Session: s}
	default:
		return &Reply{Text: c.text(msgcat.KeyMoveTurn, c.view(s)), Session: s}
	}
}

// applyMove returns the next session, or a gameplay rejection and no session. cur is a private copy.
// The cell is validated before turn ownership so a duplicate of an accepted move reads as invalid.
func (c *Controller) applyMove(cur *session.Session, sender string, cell int) (*session.Session, error) {
	if !cur.Active() {
		return nil, ErrNoActiveGame
	}
	if !board.CanPlace(cur.Board, cell) {
		return nil, ErrInvalidMove
	}
	mark := cur.CurrentMark
	owner := cur.Player(mark)
	switch {
	case owner == sender:
	case owner == "" && mark == board.O && sender != cur.Player(board.X):
		cur.Players[board.O] = sender
	default:
		return nil, ErrNotYourTurn
	}

	cur.Board[cell-1] = mark
	cur.Moves = append(cur.Moves, cell)
	cur.UpdatedAt = c.cfg.Clock()
	if w := board.Winner(cur.Board); w != board.Empty {
		cur.Status = session.StatusWon
		cur.Winner = w
	} else if board.IsFull(cur.Board) {
		cur.Status = session.StatusDrawn
	} else {
		cur.CurrentMark = mark.Other()
	}
	return cur, nil
}

func (c *Controller) rejection(err error, s *session.Session) *Reply {
	r := &Reply{Err: err, Session: s}
	switch {
	case errors.Is(err, ErrNoActiveGame):
		r.Text = c.text(msgcat.KeyNoGame, c.view(s))
	case errors.Is(err, ErrNotYourTurn):
		r.Text = c.text(msgcat.KeyNotYourTurn, c.view(s))
	default:
		r.Text = c.text(msgcat.KeyInvalidMove, c.view(s))
	}
	return r
}

func (c *Controller) showBoard(ctx context.Context, convID string, req Request) *Reply {
	s, err := c.store.Get(ctx, convID)
	if err != nil {
		return c.unavailable(convID, req, err)
	}
	switch {
	case s.Active():
		return &Reply{Text: c.text(msgcat.KeyBoardShow, c.view(s)), Session: s}
	case s != nil && s.Status.Terminal():
		return &Reply{Text: c.text(msgcat.KeyBoardFinished, c.view(s)), Session: s}
	default:
		return &Reply{Text: c.text(msgcat.KeyNoGame, c.view(s)), Err: ErrNoActiveGame, Session: s}
	}
}

func (c *Controller) showHistory(ctx context.Context, convID string, req Request) *Reply {
	if c.results == nil {
		return &Reply{Text: c.text(msgcat.KeyHistoryEmpty, c.view(nil))}
	}
	rs, err := c.results.Recent(ctx, convID, c.cfg.HistoryLimit)
	if err != nil {
		return c.unavailable(convID, req, err)
	}
	if len(rs) == 0 {
		return &Reply{Text: c.text(msgcat.KeyHistoryEmpty, c.view(nil))}
	}
	lines := make([]string, 0, len(rs)+1)
	lines = append(lines, c.text(msgcat.KeyHistoryHeader, map[string]any{"Count": len(rs)}))
	for _, r := range rs {
		data := map[string]any{"Winner": string(r.Winner), "Moves": len(r.Moves)}
		if r.Outcome == history.OutcomeWon {
			lines = append(lines, c.text(msgcat.KeyHistoryWon, data))
		} else {
			lines = append(lines, c.text(msgcat.KeyHistoryDrawn, data))
		}
	}
	return &Reply{Text: strings.Join(lines, "\n")}
}

// record appends a finished game to the ledger. Failures are logged only.
func (c *Controller) record(ctx context.Context, s *session.Session) {
	if c.results == nil {
		return
	}
	r, ok := history.FromSession(s)
	if !ok {
		return
	}
	if err := c.results.Record(ctx, r); err != nil {
		c.logger.Warn("game_result_record_failed",
			zap.String("conversation_id", s.ConversationID),
			zap.String("game_id", s.GameID),
			zap.Error(err),
		)
	}
}

func (c *Controller) unavailable(convID string, req Request, err error) *Reply {
	c.logger.Error("game_store_failed",
		zap.String("conversation_id", convID),
		zap.String("sender_id", req.SenderID),
		zap.String("command", req.Command.Kind.String()),
		zap.Error(err),
	)
	return &Reply{Text: c.text(msgcat.KeyErrorGeneric, nil), Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
}

func (c *Controller) view(s *session.Session) map[string]any {
	data := map[string]any{"Bot": c.cfg.BotName, "Board": board.Render(board.Board{}), "Turn": string(board.X), "Winner": ""}
	if s != nil {
		data["Board"] = board.Render(s.Board)
		data["Turn"] = string(s.CurrentMark)
		data["Winner"] = string(s.Winner)
	}
	return data
}

func (c *Controller) text(key string, data any) string {
	s, err := c.cat.Render(key, data)
	if err != nil {
		c.logger.Warn("msgcat_render_failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return s
}
