package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ping retry budget while the server may still be starting
const (
	pgPingAttempts = 10
	pgPingTimeout  = 3 * time.Second
	pgBackoffMax   = 2 * time.Second
)

// pgxConn is what *pgxpool.Pool and pgx.Tx share
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgConn struct{ c pgxConn }

func (p pgConn) exec(ctx context.Context, sql string, args []any) (int64, error) {
	tag, err := p.c.Exec(ctx, sql, args...)
	return tag.RowsAffected(), err
}

func (p pgConn) query(ctx context.Context, sql string, args []any) (Rows, error) {
	rows, err := p.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (p pgConn) queryRow(ctx context.Context, sql string, args []any) Row {
	return p.c.QueryRow(ctx, sql, args...)
}

// pgDB is the postgres TxRunner over a pgx pool
type pgDB struct {
	traced
	pool *pgxpool.Pool
}

func (d *pgDB) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		return fn(traced{c: pgConn{c: tx}, log: d.log})
	})
}

func (d *pgDB) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }

func (d *pgDB) Close() error {
	d.pool.Close()
	return nil
}

// openPG builds the pool and pings it with backoff until it answers
func openPG(ctx context.Context, cfg PGConfig, appName string, log *queryLog) (TxRunner, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("postgres: empty url")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if appName != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = appName
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}

	backoff := 150 * time.Millisecond
	for attempt := 1; ; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, pgPingTimeout)
		err = pool.Ping(pctx)
		cancel()
		if err == nil {
			return &pgDB{traced: traced{c: pgConn{c: pool}, log: log}, pool: pool}, nil
		}
		if attempt == pgPingAttempts || ctx.Err() != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: ping failed after %d attempts: %w", attempt, err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, pgBackoffMax)
	}
}
