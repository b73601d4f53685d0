package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/park285/xo-messenger-bot/internal/board"
	"github.com/park285/xo-messenger-bot/internal/session"
)

const resultSchema = `
CREATE TABLE IF NOT EXISTS xo_results (
	game_id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	winner TEXT NOT NULL DEFAULT '',
	winner_id TEXT NOT NULL DEFAULT '',
	player_x TEXT NOT NULL DEFAULT '',
	player_o TEXT NOT NULL DEFAULT '',
	moves TEXT NOT NULL DEFAULT '[]',
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP NOT NULL
)`

const resultIndex = `CREATE INDEX IF NOT EXISTS idx_xo_results_conversation ON xo_results (conversation_id, ended_at)`

// SQLRepository writes results to xo_results; it shares the session store's database.
type SQLRepository struct {
	db      *sql.DB
	dialect session.Dialect
}

func NewSQLRepository(ctx context.Context, db *sql.DB, dialect session.Dialect) (*SQLRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database handle")
	}
	if _, err := db.ExecContext(ctx, resultSchema); err != nil {
		return nil, fmt.Errorf("create results schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, resultIndex); err != nil {
		return nil, fmt.Errorf("create results index: %w", err)
	}
	return &SQLRepository{db: db, dialect: dialect}, nil
}

func (r *SQLRepository) Record(ctx context.Context, res *Result) error {
	if r == nil || r.db == nil || res == nil {
		return nil
	}
	moves, err := json.Marshal(res.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	q := `INSERT INTO xo_results (
		game_id, conversation_id, outcome, winner, winner_id,
		player_x, player_o, moves, started_at, ended_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (game_id) DO UPDATE SET
		outcome = excluded.outcome,
		winner = excluded.winner,
		winner_id = excluded.winner_id,
		player_x = excluded.player_x,
		player_o = excluded.player_o,
		moves = excluded.moves,
		ended_at = excluded.ended_at`
	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(q),
		res.GameID, res.ConversationID, string(res.Outcome), string(res.Winner), res.WinnerID,
		res.PlayerX, res.PlayerO, string(moves), res.StartedAt.UTC(), res.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *SQLRepository) Recent(ctx context.Context, conversationID string, limit int) ([]*Result, error) {
	q := `SELECT game_id, conversation_id, outcome, winner, winner_id,
		player_x, player_o, moves, started_at, ended_at
	FROM xo_results
	WHERE conversation_id = ?
	ORDER BY ended_at DESC, game_id DESC
	LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), conversationID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		var (
			res             Result
			outcome, winner string
			movesRaw        string
		)
		if err := rows.Scan(&res.GameID, &res.ConversationID, &outcome, &winner, &res.WinnerID,
			&res.PlayerX, &res.PlayerO, &movesRaw, &res.StartedAt, &res.EndedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Outcome = Outcome(outcome)
		res.Winner = board.Mark(winner)
		if err := json.Unmarshal([]byte(movesRaw), &res.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
