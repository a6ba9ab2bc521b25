package keywords

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS keywords (
	position INTEGER PRIMARY KEY,
	keyword  TEXT NOT NULL,
	value    TEXT NOT NULL
)`

// SQLiteStore keeps rows in a local SQLite database file.
type SQLiteStore struct {
	path   string
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	logger.Debug("keywords.sqlite.opened", "path", path)
	return &SQLiteStore{path: path, db: db, logger: logger}, nil
}

func (s *SQLiteStore) Location() string { return s.path }
func (s *SQLiteStore) Close() error     { return s.db.Close() }

func (s *SQLiteStore) Load(ctx context.Context) ([]Row, []Warning, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT keyword, value FROM keywords ORDER BY position`)
	if err != nil {
		return nil, nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rs.Close()

	var rows []Row
	for rs.Next() {
		var r Row
		if err := rs.Scan(&r.Keyword, &r.Value); err != nil {
			return nil, nil, fmt.Errorf("scan keyword: %w", err)
		}
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, nil, fmt.Errorf("read keywords: %w", err)
	}
	return rows, nil, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rows []Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM keywords`); err != nil {
		return fmt.Errorf("clear keywords: %w", err)
	}
	for i, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO keywords (position, keyword, value) VALUES (?, ?, ?)`,
			i+1, r.Keyword, r.Value); err != nil {
			return fmt.Errorf("insert %q: %w", r.Keyword, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("keywords.sqlite.saved", "path", s.path, "rows", len(rows))
	return nil
}
