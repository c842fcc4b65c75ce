// Package warehouse is the storage boundary of the loader: it owns the star
// schema, the staging replace loads, and the dimension/fact promotion rules.
// The store runs on an embedded sqlite database by default and on postgres
// when a DSN is supplied; both dialects share the same upsert contracts.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"onetmart/internal/warehouse/schema"
)

// Dialect selects the storage engine behind the warehouse.
type Dialect string

// Supported warehouse dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// OpenConfig describes where and how to (re)initialize the warehouse.
type OpenConfig struct {
	// Path is the sqlite database file, used when DSN is empty.
	Path string
	// DSN selects the postgres dialect when non-empty.
	DSN string
	// SchemaPath optionally overrides the embedded DDL bundle with an
	// external schema script.
	SchemaPath string
}

// Store is the single-writer handle to the warehouse. It is not safe for
// concurrent pipeline runs; idempotent re-runs are the concurrency model.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// Open re-initializes the warehouse and applies the schema. Prior contents
// are discarded: the sqlite file is removed before opening, and the DDL
// bundle drops every warehouse table before recreating it.
func Open(ctx context.Context, cfg OpenConfig) (*Store, error) {
	var (
		db      *sqlx.DB
		dialect Dialect
		err     error
	)
	if cfg.DSN != "" {
		dialect = DialectPostgres
		db, err = sqlx.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
	} else {
		dialect = DialectSQLite
		path := cfg.Path
		if path == "" {
			path = "warehouse/onet.db"
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("create warehouse dir: %w", err)
			}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reset warehouse file: %w", err)
		}
		db, err = sqlx.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
	}
	// One exclusive connection for the run; the store has a single writer
	// and sqlite pragmas are per-connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, dialect: dialect}
	if err := s.applySchema(ctx, cfg.SchemaPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenExisting attaches to an already loaded warehouse without touching its
// schema or contents. The sqlite database file must exist.
func OpenExisting(ctx context.Context, cfg OpenConfig) (*Store, error) {
	if cfg.DSN != "" {
		db, err := sqlx.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		db.SetMaxOpenConns(1)
		return &Store{db: db, dialect: DialectPostgres}, nil
	}
	path := cfg.Path
	if path == "" {
		path = "warehouse/onet.db"
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("warehouse not found at %s: %w", path, err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{db: db, dialect: DialectSQLite}, nil
}

// applySchema executes the dialect's DDL bundle, or an external script when
// an override path is given. A malformed script aborts the run.
func (s *Store) applySchema(ctx context.Context, override string) error {
	ddl := schema.SQLite
	if s.dialect == DialectPostgres {
		ddl = schema.Postgres
	}
	if override != "" {
		raw, err := os.ReadFile(override)
		if err != nil {
			return fmt.Errorf("read schema script: %w", err)
		}
		ddl = string(raw)
	}
	if s.dialect == DialectSQLite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	for _, stmt := range schema.SplitStatements(ddl) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for the report runner and tests.
func (s *Store) DB() *sqlx.DB { return s.db }

// Dialect returns the active storage dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// TableExists reports whether a table is present in the active schema.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var (
		n     int
		query string
	)
	switch s.dialect {
	case DialectPostgres:
		query = s.db.Rebind("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?")
	default:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	if err := s.db.GetContext(ctx, &n, query, table); err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return n > 0, nil
}
