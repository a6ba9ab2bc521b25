package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/keyword-estimator/internal/common"
)

// Store persists keyword rows between sessions.
//
// Load never fails because of a malformed row: such rows are returned as
// warnings and the remaining rows are still returned. A store that does not
// exist yet loads as an empty set.
type Store interface {
	Load(ctx context.Context) ([]Row, []Warning, error)
	Save(ctx context.Context, rows []Row) error
	Location() string
	Close() error
}

// OpenStore picks a store implementation for location: a postgres:// DSN,
// or a file path whose extension selects the format (.csv, .yaml/.yml,
// .json, .db/.sqlite/.sqlite3).
func OpenStore(ctx context.Context, location string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		return NewPostgresStore(ctx, location, logger)
	}
	if location == "" {
		return nil, common.NewAppError("INVALID_STORE", "keyword store location is empty", common.ErrInvalidInput)
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".csv":
		return NewCSVStore(location, logger), nil
	case ".yaml", ".yml":
		return NewYAMLStore(location, logger), nil
	case ".json":
		return NewJSONStore(location, logger)
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(ctx, location, logger)
	default:
		return nil, common.NewAppError("INVALID_STORE",
			fmt.Sprintf("unsupported keyword store %q", location), common.ErrInvalidInput)
	}
}

// LoadSpec loads rows from store and parses them. Parse warnings are
// appended to the store's own warnings.
func LoadSpec(ctx context.Context, store Store) (Spec, []Warning, error) {
	_, spec, warnings, err := LoadTable(ctx, store)
	return spec, warnings, err
}

// LoadTable is LoadSpec that also returns the rows as stored. Save the
// table, not the spec, to write a set back without losing rows.
func LoadTable(ctx context.Context, store Store) (Table, Spec, []Warning, error) {
	rows, warnings, err := store.Load(ctx)
	if err != nil {
		return nil, nil, warnings, err
	}
	table := Table(rows)
	spec, parseWarnings := table.Spec()
	return table, spec, append(warnings, parseWarnings...), nil
}

// writeFile replaces path atomically, creating its directory first.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// readFile returns nil data for a missing file.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
