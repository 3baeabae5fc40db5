package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

const taskColumns = `id, board_id, title, content, created_at, updated_at,
	timer_start, timer_end, timer_running, timer_duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (Task, error) {
	var (
		t                  Task
		created, updated   string
		timerStart, timerE sql.NullString
	)
	if err := s.Scan(&t.ID, &t.BoardID, &t.Title, &t.Content, &created, &updated,
		&timerStart, &timerE, &t.TimerRunning, &t.TimerDurationMS); err != nil {
		return Task{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		t.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		t.UpdatedAt = ts
	}
	t.TimerStart = parseNullTime(timerStart)
	t.TimerEnd = parseNullTime(timerE)
	return t, nil
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &ts
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

// Create implements Repository.Create with basic validation
func (r *SQLiteRepo) Create(ctx context.Context, boardID, title, content string) (Task, error) {
	if err := checkTitle(title); err != nil {
		return Task{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (board_id, title, content, created_at, updated_at, timer_running, timer_duration_ms)
		VALUES (?, ?, ?, ?, ?, 0, 0)
	`, boardID, title, content, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        id,
		BoardID:   boardID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// List implements Repository.List
func (r *SQLiteRepo) List(ctx context.Context, boardID string) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE board_id = ?
		ORDER BY id ASC
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Get(ctx context.Context, boardID string, id int64) (Task, error) {
	return getTask(ctx, r.db, boardID, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, q querier, boardID string, id int64) (Task, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ? AND board_id = ?
	`, id, boardID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

// Update reads, patches and writes the row in one transaction so concurrent
// patches to different fields do not overwrite each other.
func (r *SQLiteRepo) Update(ctx context.Context, boardID string, id int64, p Patch) (Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getTask(ctx, tx, boardID, id)
	if err != nil {
		return Task{}, err
	}
	next := p.Apply(cur)
	if err := checkTask(next); err != nil {
		return Task{}, err
	}
	next.UpdatedAt = r.now()

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, content = ?, updated_at = ?, timer_start = ?, timer_end = ?,
			timer_running = ?, timer_duration_ms = ?
		WHERE id = ? AND board_id = ?
	`, next.Title, next.Content, next.UpdatedAt.Format(time.RFC3339Nano),
		formatNullTime(next.TimerStart), formatNullTime(next.TimerEnd),
		next.TimerRunning, next.TimerDurationMS, id, boardID); err != nil {
		return Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Task{}, err
	}
	return next, nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, boardID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND board_id = ?`, id, boardID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyMigrations ensures schema exists
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	board_id TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	timer_start TEXT,
	timer_end TEXT,
	timer_running INTEGER NOT NULL DEFAULT 0,
	timer_duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tasks_board ON tasks (board_id, id);
	`)
	return err
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
