package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Results is a SQLite ledger of finished games. All methods are safe for
// concurrent use.
type Results struct {
	conn *sql.DB
	mu   sync.Mutex
}

// GameResult is one finished game.
type GameResult struct {
	ID          string
	Seed        uint64
	Table       string
	Steps       int
	TotalReward int
	FinalLength int
	Reason      string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration is the wall time the game took.
func (r GameResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// OpenResults opens (or creates) the ledger at path.
func OpenResults(path string) (*Results, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1) // SQLite only supports one writer
	conn.SetMaxIdleConns(1)

	r := &Results{conn: conn}
	if err := r.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *Results) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		seed INTEGER,
		table_name TEXT,
		steps INTEGER,
		total_reward INTEGER,
		final_length INTEGER,
		reason TEXT,
		started_at INTEGER,            -- unix millis
		finished_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_games_total_reward ON games(total_reward);
	CREATE INDEX IF NOT EXISTS idx_games_finished_at ON games(finished_at);
	`

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Insert records one game. A second insert with the same ID is ignored.
func (r *Results) Insert(ctx context.Context, g GameResult) error {
	return r.InsertBatch(ctx, []GameResult{g})
}

// InsertBatch records games in a single transaction.
func (r *Results) InsertBatch(ctx context.Context, games []GameResult) error {
	if len(games) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO games
		(id, seed, table_name, steps, total_reward, final_length, reason, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range games {
		_, err := stmt.ExecContext(ctx,
			g.ID, int64(g.Seed), g.Table, g.Steps, g.TotalReward, g.FinalLength, g.Reason,
			g.StartedAt.UnixMilli(), g.FinishedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert game %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Exists reports whether a game with id has been recorded.
func (r *Results) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var one int
	err := r.conn.QueryRowContext(ctx, "SELECT 1 FROM games WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Recent returns up to limit games, newest first.
func (r *Results) Recent(ctx context.Context, limit int) ([]GameResult, error) {
	return r.query(ctx, selectGames+" ORDER BY finished_at DESC, id LIMIT ?", limit)
}

// Best returns up to limit games ordered by total reward, then length.
func (r *Results) Best(ctx context.Context, limit int) ([]GameResult, error) {
	return r.query(ctx, selectGames+" ORDER BY total_reward DESC, final_length DESC, id LIMIT ?", limit)
}

// Summary aggregates the whole ledger.
type Summary struct {
	Games     int64
	MeanScore float64
	MaxScore  int64
	MaxLength int64
}

func (r *Results) Summary(ctx context.Context) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Summary
	err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(AVG(total_reward), 0), COALESCE(MAX(total_reward), 0), COALESCE(MAX(final_length), 0)
		FROM games`).Scan(&s.Games, &s.MeanScore, &s.MaxScore, &s.MaxLength)
	if err != nil {
		return Summary{}, fmt.Errorf("summarise games: %w", err)
	}
	return s, nil
}

func (r *Results) Close() error {
	return r.conn.Close()
}

const selectGames = `SELECT id, seed, table_name, steps, total_reward, final_length, reason, started_at, finished_at FROM games`

func (r *Results) query(ctx context.Context, q string, args ...any) ([]GameResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		var (
			g                 GameResult
			seed              int64
			started, finished int64
		)
		if err := rows.Scan(&g.ID, &seed, &g.Table, &g.Steps, &g.TotalReward, &g.FinalLength, &g.Reason, &started, &finished); err != nil {
			return nil, err
		}
		g.Seed = uint64(seed)
		g.StartedAt = time.UnixMilli(started)
		g.FinishedAt = time.UnixMilli(finished)
		out = append(out, g)
	}
	return out, rows.Err()
}
