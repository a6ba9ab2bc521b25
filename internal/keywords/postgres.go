package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS keyword_definitions (
	position INTEGER PRIMARY KEY,
	keyword  TEXT NOT NULL,
	value    TEXT NOT NULL
)`

// PostgresStore keeps rows in a shared Postgres table.
type PostgresStore struct {
	dsn    string
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pc.MaxConns = 4
	pc.ConnConfig.RuntimeParams["application_name"] = "keyword-estimator"

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("keywords.postgres.connect_failed", "dsn", redact(dsn), "error", err)
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(dialCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("keywords.postgres.connected", "dsn", redact(dsn))
	return &PostgresStore{dsn: dsn, pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Location() string { return redact(s.dsn) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]Row, []Warning, error) {
	rs, err := s.pool.Query(ctx, `SELECT keyword, value FROM keyword_definitions ORDER BY position`)
	if err != nil {
		return nil, nil, fmt.Errorf("query keywords: %w", err)
	}
	rows, err := pgx.CollectRows(rs, func(r pgx.CollectableRow) (Row, error) {
		var row Row
		err := r.Scan(&row.Keyword, &row.Value)
		return row, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read keywords: %w", err)
	}
	return rows, nil, nil
}

func (s *PostgresStore) Save(ctx context.Context, rows []Row) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM keyword_definitions`); err != nil {
			return fmt.Errorf("clear keywords: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		src := make([][]any, len(rows))
		for i, r := range rows {
			src[i] = []any{int32(i + 1), r.Keyword, r.Value}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"keyword_definitions"},
			[]string{"position", "keyword", "value"},
			pgx.CopyFromRows(src))
		if err != nil {
			return fmt.Errorf("insert keywords: %w", err)
		}
		return nil
	})
}

// redact hides the password of a DSN for logs.
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres://"
	}
	return u.Redacted()
}
