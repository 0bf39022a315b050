package audit_sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/davarch/remote-trigger/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS triggers (
	id           TEXT PRIMARY KEY,
	server       TEXT NOT NULL,
	job          TEXT NOT NULL,
	build_number INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	build_url    TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_triggers_started ON triggers(started_at);
`

// Entry is one recorded trigger step.
type Entry struct {
	ID          string `db:"id" json:"id"`
	Server      string `db:"server" json:"server"`
	Job         string `db:"job" json:"job"`
	BuildNumber int    `db:"build_number" json:"build_number"`
	Status      string `db:"status" json:"status"`
	BuildURL    string `db:"build_url" json:"build_url,omitempty"`
	Error       string `db:"error" json:"error,omitempty"`
	StartedAt   int64  `db:"started_at" json:"started_at"`
	FinishedAt  int64  `db:"finished_at" json:"finished_at"`
}

func (e Entry) Started() time.Time { return time.UnixMilli(e.StartedAt) }

func (e Entry) Duration() time.Duration {
	return time.Duration(e.FinishedAt-e.StartedAt) * time.Millisecond
}

type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the audit database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Record(ctx context.Context, o domain.Outcome) error {
	e := Entry{
		ID:          o.ID,
		Server:      o.Server,
		Job:         o.Job,
		BuildNumber: o.BuildNumber,
		Status:      string(o.Status),
		BuildURL:    o.BuildURL,
		StartedAt:   o.Started.UnixMilli(),
		FinishedAt:  o.Finished.UnixMilli(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}

	const query = `
		INSERT OR REPLACE INTO triggers (
			id, server, job, build_number, status, build_url, error, started_at, finished_at
		) VALUES (
			:id, :server, :job, :build_number, :status, :build_url, :error, :started_at, :finished_at
		)`
	if _, err := s.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("recording trigger %s: %w", o.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. job filters when non-empty.
func (s *Store) Recent(ctx context.Context, job string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT * FROM triggers"
	var args []any
	if job != "" {
		query += " WHERE job = ?"
		args = append(args, job)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	var out []Entry
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("listing triggers: %w", err)
	}
	return out, nil
}
