package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/xo-messenger-bot/internal/board"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between the SQL backends.
type Dialect struct {
	Name   string
	Driver string
	// lockKey serialises writers of one conversation inside a transaction; empty when the
	// transaction itself already holds an exclusive write lock.
	lockKey string
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "postgres", lockKey: `SELECT pg_advisory_xact_lock(hashtext(?))`}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite"}
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(q string) string {
	if d.Name != Postgres.Name {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS xo_sessions (
	conversation_id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL,
	board TEXT NOT NULL,
	current_mark TEXT NOT NULL,
	status TEXT NOT NULL,
	winner TEXT NOT NULL DEFAULT '',
	player_x TEXT NOT NULL DEFAULT '',
	player_o TEXT NOT NULL DEFAULT '',
	moves TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const selectSession = `
SELECT conversation_id, game_id, board, current_mark, status, winner,
       player_x, player_o, moves, created_at, updated_at
FROM xo_sessions WHERE conversation_id = ?`

const upsertSession = `
INSERT INTO xo_sessions (
	conversation_id, game_id, board, current_mark, status, winner,
	player_x, player_o, moves, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (conversation_id) DO UPDATE SET
	game_id = excluded.game_id,
	board = excluded.board,
	current_mark = excluded.current_mark,
	status = excluded.status,
	winner = excluded.winner,
	player_x = excluded.player_x,
	player_o = excluded.player_o,
	moves = excluded.moves,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`

// SQLStore keeps one row per conversation in xo_sessions; the primary key enforces uniqueness.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenPostgres connects to databaseURL and ensures the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*SQLStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open(Postgres.Driver, databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	return newSQLStore(ctx, db, Postgres)
}

// OpenSQLite opens (creating if needed) the database file at path. Write transactions take the
// database write lock immediately, so writers are serialised.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("SQLITE_PATH is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open(SQLite.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, SQLite)
}

func newSQLStore(ctx context.Context, db *sql.DB, d Dialect) (*SQLStore, error) {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	if _, err := db.ExecContext(pctx, sessionSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// DB exposes the handle for components sharing the database (result ledger).
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the backend flavour.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Get(ctx context.Context, conversationID string) (*Session, error) {
	id, err := normalizeKey(conversationID)
	if err != nil {
		return nil, err
	}
	return scanSession(s.db.QueryRowContext(ctx, s.dialect.Rebind(selectSession), id))
}

func (s *SQLStore) Update(ctx context.Context, conversationID string, fn Mutator) (out *Session, err error) {
	id, err := normalizeKey(conversationID)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.dialect.lockKey != "" {
		if _, err = tx.ExecContext(ctx, s.dialect.Rebind(s.dialect.lockKey), id); err != nil {
			return nil, fmt.Errorf("lock session: %w", err)
		}
	}
	cur, err := scanSession(tx.QueryRowContext(ctx, s.dialect.Rebind(selectSession), id))
	if err != nil {
		return nil, err
	}
	next, err := apply(id, cur, fn)
	if err != nil {
		return nil, err
	}
	if next == nil {
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return cur, nil
	}

	moves, err := json.Marshal(next.Moves)
	if err != nil {
		return nil, fmt.Errorf("encode moves: %w", err)
	}
	_, err = tx.ExecContext(ctx, s.dialect.Rebind(upsertSession),
		next.ConversationID,
		next.GameID,
		strings.Join(next.Cells, ","),
		string(next.CurrentMark),
		string(next.Status),
		string(next.Winner),
		next.Players[board.X],
		next.Players[board.O],
		string(moves),
		next.CreatedAt.UTC(),
		next.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		s                       Session
		cells, mark, status     string
		winner, px, po, moveRaw string
	)
	err := row.Scan(&s.ConversationID, &s.GameID, &cells, &mark, &status, &winner,
		&px, &po, &moveRaw, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.Cells = strings.Split(cells, ",")
	s.CurrentMark = board.Mark(mark)
	s.Status = Status(status)
	s.Winner = board.Mark(winner)
	s.Players = map[board.Mark]string{}
	if px != "" {
		s.Players[board.X] = px
	}
	if po != "" {
		s.Players[board.O] = po
	}
	if moveRaw != "" {
		if err := json.Unmarshal([]byte(moveRaw), &s.Moves); err != nil {
			return nil, fmt.Errorf("decode moves: %w", err)
		}
	}
	s.syncBoard()
	return &s, nil
}
