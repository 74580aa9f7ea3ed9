// Package store persists certificate validation records.
//
// Records live in a certificate_validations table in either SQLite (pure Go,
// via modernc.org/sqlite) or Postgres (via a pgx pool). Both backends share
// one database/sql implementation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record has the requested id
var ErrNotFound = errors.New("store: record not found")

// Dialect selects SQL syntax differences between backends
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config holds database configuration
type Config struct {
	Driver Dialect
	DSN    string

	// Postgres pool tuning
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DefaultConfig returns an in-memory SQLite configuration
func DefaultConfig() Config {
	return Config{
		Driver:          DialectSQLite,
		DSN:             ":memory:",
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}
}

// Repository saves and loads validation records
type Repository struct {
	db      *sql.DB
	pool    *pgxpool.Pool // nil for SQLite
	dialect Dialect
	logger  *slog.Logger
}

// Open connects to the configured backend and creates the schema
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DialectSQLite, "":
		return openSQLite(ctx, cfg, logger)
	case DialectPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A :memory: database exists per connection
	db.SetMaxOpenConns(1)

	r := &Repository{db: db, dialect: DialectSQLite, logger: logger}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("store.open", "driver", DialectSQLite)
	return r, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "certscore"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	r := &Repository{db: stdlib.OpenDBFromPool(pool), pool: pool, dialect: DialectPostgres, logger: logger}
	if err := r.migrate(ctx); err != nil {
		r.Close()
		return nil, err
	}
	logger.Info("store.open", "driver", DialectPostgres)
	return r, nil
}

// Ping checks the connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases database connections
func (r *Repository) Close() error {
	err := r.db.Close()
	if r.pool != nil {
		r.pool.Close()
	}
	return err
}

func (r *Repository) migrate(ctx context.Context) error {
	ts := "TIMESTAMP"
	if r.dialect == DialectPostgres {
		ts = "TIMESTAMPTZ"
	}
	ddl := `
create table if not exists certificate_validations (
  id                  text primary key,
  created_at          ` + ts + ` not null,
  certificate_type    text not null default '',
  issuing_authority   text not null default '',
  certificate_number  text not null default '',
  validity_date       text not null default '',
  farm_size           double precision,
  final_score         double precision not null,
  grade               text not null,
  reliability         text not null,
  recommendations     text not null,
  features            text not null,
  raw_text            text not null default ''
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// rebind rewrites $N placeholders for backends that use ?
func (r *Repository) rebind(q string) string {
	if r.dialect == DialectPostgres {
		return q
	}
	var sb strings.Builder
	for i := 0; i < len(q); i++ {
		if q[i] == '$' && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
			sb.WriteByte('?')
			for i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
				i++
			}
			continue
		}
		sb.WriteByte(q[i])
	}
	return sb.String()
}
