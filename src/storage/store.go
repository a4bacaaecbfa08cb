package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/spf13/afero"
	_ "modernc.org/sqlite"
)

// ErrNoStore reports that the backing database file does not exist. Callers
// higher up treat this as "zero sessions", not a failure: the store is owned
// by the agent harness and may simply not have been created yet.
var ErrNoStore = errors.New("session store not found")

// Store executes read-only queries against the OpenCode session database.
// Each call opens and closes one short-lived connection; call volume is
// bounded by the refresh interval, so a pool buys nothing here.
type Store struct {
	path string
	fs   afero.Fs
	log  *slog.Logger
}

// NewStore creates a store for the database at path. fs is used only to
// probe file existence; pass nil for the OS filesystem.
func NewStore(path string, fs afero.Fs, logger *slog.Logger) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, fs: fs, log: logger}
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Available reports whether the database file exists.
func (s *Store) Available() bool {
	ok, err := afero.Exists(s.fs, s.path)
	return err == nil && ok
}

func (s *Store) open() (*sql.DB, error) {
	if !s.Available() {
		return nil, fmt.Errorf("%w: %s", ErrNoStore, s.path)
	}
	return s.openRaw()
}

// openRaw skips the existence probe. SQLite creates the file on first write,
// which is exactly what the seeding helpers want.
func (s *Store) openRaw() (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return db, nil
}

// Query describes a validated SELECT. Zero values mean "all columns", "no
// filter", "no ordering", "no limit". OrderBy takes a single column name,
// with a leading - for descending order.
type Query struct {
	Columns []string
	Where   map[string]any
	OrderBy string
	Limit   int
}

// Select builds and runs a SELECT against one schema table, scanning rows
// into dest (a pointer to a slice of structs with db tags). Table and every
// referenced column are validated against the schema registry before any SQL
// is assembled.
func (s *Store) Select(ctx context.Context, dest any, table string, q Query) error {
	t, err := lookupTable(table)
	if err != nil {
		return err
	}

	query, args, err := buildSelect(t, q)
	if err != nil {
		return err
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlscan.Select(ctx, db, dest, query, args...); err != nil {
		return fmt.Errorf("select from %s: %w", t.Name, err)
	}
	return nil
}

// Count returns the number of rows in table matching where.
func (s *Store) Count(ctx context.Context, table string, where map[string]any) (int64, error) {
	t, err := lookupTable(table)
	if err != nil {
		return 0, err
	}

	query := "SELECT COUNT(*) FROM " + t.Name
	whereSQL, args, err := buildWhere(t, where)
	if err != nil {
		return 0, err
	}
	query += whereSQL

	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var n int64
	if err := sqlscan.Get(ctx, db, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

// Exists reports whether any row in table matches where.
func (s *Store) Exists(ctx context.Context, table string, where map[string]any) (bool, error) {
	n, err := s.Count(ctx, table, where)
	return n > 0, err
}

func buildSelect(t Table, q Query) (string, []any, error) {
	cols := t.columnNames()
	if len(q.Columns) > 0 {
		cols = make([]string, len(q.Columns))
		for i, c := range q.Columns {
			name, err := t.validateColumn(c)
			if err != nil {
				return "", nil, err
			}
			cols[i] = name
		}
	}

	query := "SELECT " + strings.Join(cols, ", ") + " FROM " + t.Name

	whereSQL, args, err := buildWhere(t, q.Where)
	if err != nil {
		return "", nil, err
	}
	query += whereSQL

	if q.OrderBy != "" {
		desc := strings.HasPrefix(q.OrderBy, "-")
		col, err := t.validateColumn(strings.TrimPrefix(q.OrderBy, "-"))
		if err != nil {
			return "", nil, err
		}
		query += " ORDER BY " + col
		if desc {
			query += " DESC"
		} else {
			query += " ASC"
		}
	}

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	return query, args, nil
}

// buildWhere renders the filter clauses in sorted column order so a given
// filter always produces the same SQL text.
func buildWhere(t Table, where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	names := make([]string, 0, len(where))
	for name := range where {
		names = append(names, name)
	}
	sort.Strings(names)

	clauses := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		col, err := t.validateColumn(name)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, where[name])
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
