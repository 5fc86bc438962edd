// Package store opens the optional primary backends behind small query seams
package store

import (
	"context"
	"errors"
	"time"

	"retrosignal/internal/platform/logger"
)

// Row is a single result row
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; Close is safe to call after iteration ends
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Queryer runs statements against a sql backend
type Queryer interface {
	// Exec returns the number of affected rows
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a Queryer that can also run fn inside one transaction,
// committing when fn returns nil and rolling back otherwise
type TxRunner interface {
	Queryer
	Tx(ctx context.Context, fn func(q Queryer) error) error
}

// Clickhouse is the columnar seam: batch inserts, positional queries and DDL
type Clickhouse interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Close() error
}

// Config enables backends individually
type Config struct {
	// AppName is reported to postgres as application_name
	AppName string
	PG      PGConfig
	Lite    LiteConfig
	CH      CHConfig
}

// PGConfig configures the postgres pool
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
}

// LiteConfig configures the embedded sqlite file
type LiteConfig struct {
	Enabled       bool
	Path          string
	BusyTimeoutMs int
	LogSQL        bool
}

// CHConfig configures the clickhouse connection
type CHConfig struct {
	Enabled bool
	URL     string
	// reported to the server in system.query_log
	ClientName string
	ClientTag  string
}

// Store holds whichever backends were enabled; the rest stay nil
type Store struct {
	Log  logger.Logger
	PG   TxRunner
	Lite TxRunner
	CH   Clickhouse
}

// Option adjusts a Store before backends open
type Option func(*Store)

// WithLogger sets the logger SQL tracing writes to
func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.Log = log }
}

// Open connects every enabled backend. On failure anything already opened is closed
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: *logger.Get()}
	for _, o := range opts {
		o(s)
	}

	var err error
	if cfg.PG.Enabled {
		var slow *queryLog
		if cfg.PG.LogSQL {
			slow = newQueryLog(s.Log, "pg", time.Duration(cfg.PG.SlowQueryMs)*time.Millisecond)
		}
		if s.PG, err = openPG(ctx, cfg.PG, cfg.AppName, slow); err != nil {
			return nil, err
		}
	}
	if cfg.Lite.Enabled {
		var slow *queryLog
		if cfg.Lite.LogSQL {
			slow = newQueryLog(s.Log, "sqlite", 0)
		}
		if s.Lite, err = openLite(ctx, cfg.Lite, slow); err != nil {
			return nil, errors.Join(err, s.Close(ctx))
		}
	}
	if cfg.CH.Enabled {
		if s.CH, err = openCH(ctx, cfg.CH); err != nil {
			return nil, errors.Join(err, s.Close(ctx))
		}
	}
	return s, nil
}

// Close releases every opened backend
func (s *Store) Close(context.Context) error {
	var errs []error
	for _, b := range []any{s.PG, s.Lite, s.CH} {
		if c, ok := b.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Many scans every row of a query with scan
func Many[T any](ctx context.Context, q Queryer, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
