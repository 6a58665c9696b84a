package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/spigell/rallypoint/internal/errors"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Timestamps are stored as fixed-width ISO-8601 UTC strings so that text
// ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'Pending',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at);

CREATE TABLE IF NOT EXISTS postings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_postings_created_at ON postings(created_at);
`

// Store persists projects and postings in a single SQLite file. Records are
// append-only.
type Store struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Debug("database ready", zap.String("path", path))

	return &Store{
		db:     db,
		path:   path,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Ping reports whether the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.Unavailable("database unreachable", err)
	}
	return nil
}

// insert runs a single statement in its own transaction and returns the new
// row id.
func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return id, nil
}

func (s *Store) timestamp() (time.Time, string) {
	now := s.now().UTC().Truncate(time.Microsecond)
	return now, now.Format(timeLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		// Rows written by other tools may use plain RFC 3339.
		return time.Parse(time.RFC3339Nano, value)
	}
	return t, nil
}

func internal(message string, err error) error {
	return apperrors.Internal(message, err)
}
