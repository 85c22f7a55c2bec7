// Package store persists questions, jingle metadata, and answer results in
// SQLite, grounded on the ordered-migrations-as-SQL-strings pattern used
// elsewhere in this codebase's lineage.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no row matches the requested ID.
var ErrNotFound = errors.New("store: not found")

// QuestionRow is one row of the questions table.
type QuestionRow struct {
	ID            string
	GameID        string
	Text          string
	Type          string
	Category      string
	Points        int
	Answers       []string
	CorrectAnswer string
}

// JingleRow is one row of the jingles table.
type JingleRow struct {
	ID      string
	Name    string
	Format  string
	RelPath string
}

// ResultRow is one persisted answer/buzz outcome.
type ResultRow struct {
	GameID       string
	QuestionID   string
	BuzzerID     string
	Answer       string
	IsCorrect    bool
	Points       int
	ResponseTime int64
	RecordedAt   time.Time
}

// Store is the SQLite-backed default implementation of the core's
// QuestionLookup, JingleLookup, and ResultWriter capabilities.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	st := &Store{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("sqlite store opened", "path", path)
	return st, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS questions (
		game_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 10,
		answers TEXT NOT NULL DEFAULT '',
		correct_answer TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (game_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS jingles (
		jingle_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		format TEXT NOT NULL,
		rel_path TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		buzzer_id TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		is_correct INTEGER NOT NULL,
		points INTEGER NOT NULL,
		response_time_ms INTEGER NOT NULL,
		recorded_at_unix_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_game_question ON results(game_id, question_id)`,
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("store: enable foreign keys: %w", err)
	}
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migration %d: %w", i, err)
		}
	}
	slog.Debug("sqlite migrations applied", "count", len(migrations))
	return nil
}

// Question looks up one question by (gameID, questionID).
func (s *Store) Question(ctx context.Context, gameID, questionID string) (QuestionRow, error) {
	const q = `SELECT game_id, question_id, text, type, category, points, answers, correct_answer
		FROM questions WHERE game_id = ? AND question_id = ?`

	var row QuestionRow
	var answers string
	err := s.db.QueryRowContext(ctx, q, gameID, questionID).Scan(
		&row.GameID, &row.ID, &row.Text, &row.Type, &row.Category, &row.Points, &answers, &row.CorrectAnswer,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuestionRow{}, ErrNotFound
		}
		return QuestionRow{}, fmt.Errorf("store: query question: %w", err)
	}
	if answers != "" {
		row.Answers = strings.Split(answers, "\x1f")
	}
	return row, nil
}

// PutQuestion inserts or replaces a question in a game's question bank.
func (s *Store) PutQuestion(ctx context.Context, row QuestionRow) error {
	const q = `INSERT INTO questions (game_id, question_id, text, type, category, points, answers, correct_answer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, question_id) DO UPDATE SET
			text = excluded.text, type = excluded.type, category = excluded.category,
			points = excluded.points, answers = excluded.answers, correct_answer = excluded.correct_answer`
	_, err := s.db.ExecContext(ctx, q,
		row.GameID, row.ID, row.Text, row.Type, row.Category, row.Points,
		strings.Join(row.Answers, "\x1f"), row.CorrectAnswer,
	)
	if err != nil {
		return fmt.Errorf("store: put question: %w", err)
	}
	return nil
}

// Jingle looks up one jingle's metadata by ID.
func (s *Store) Jingle(ctx context.Context, jingleID string) (JingleRow, error) {
	const q = `SELECT jingle_id, name, format, rel_path FROM jingles WHERE jingle_id = ?`

	var row JingleRow
	err := s.db.QueryRowContext(ctx, q, jingleID).Scan(&row.ID, &row.Name, &row.Format, &row.RelPath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return JingleRow{}, ErrNotFound
		}
		return JingleRow{}, fmt.Errorf("store: query jingle: %w", err)
	}
	return row, nil
}

// PutJingle inserts or replaces a jingle's catalog entry.
func (s *Store) PutJingle(ctx context.Context, row JingleRow) error {
	const q = `INSERT INTO jingles (jingle_id, name, format, rel_path) VALUES (?, ?, ?, ?)
		ON CONFLICT (jingle_id) DO UPDATE SET name = excluded.name, format = excluded.format, rel_path = excluded.rel_path`
	_, err := s.db.ExecContext(ctx, q, row.ID, row.Name, row.Format, row.RelPath)
	if err != nil {
		return fmt.Errorf("store: put jingle: %w", err)
	}
	return nil
}

// WriteResult persists one answer/buzz outcome.
func (s *Store) WriteResult(ctx context.Context, row ResultRow) error {
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	const q = `INSERT INTO results (game_id, question_id, buzzer_id, answer, is_correct, points, response_time_ms, recorded_at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		row.GameID, row.QuestionID, row.BuzzerID, row.Answer, row.IsCorrect, row.Points,
		row.ResponseTime, row.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: write result: %w", err)
	}
	return nil
}

// Results returns every persisted result for a game, ordered by insertion.
func (s *Store) Results(ctx context.Context, gameID string) ([]ResultRow, error) {
	const q = `SELECT game_id, question_id, buzzer_id, answer, is_correct, points, response_time_ms, recorded_at_unix_ms
		FROM results WHERE game_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: query results: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var recordedAtUnixMS int64
		if err := rows.Scan(&r.GameID, &r.QuestionID, &r.BuzzerID, &r.Answer, &r.IsCorrect, &r.Points, &r.ResponseTime, &recordedAtUnixMS); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		r.RecordedAt = time.UnixMilli(recordedAtUnixMS).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
