package store

import (
	"context"
	"database/sql"

	"retrosignal/internal/platform/store/sqlite"
)

// sqlConnish is what *sql.DB and *sql.Tx share
type sqlConnish interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type liteConn struct{ c sqlConnish }

func (l liteConn) exec(ctx context.Context, q string, args []any) (int64, error) {
	res, err := l.c.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (l liteConn) query(ctx context.Context, q string, args []any) (Rows, error) {
	rows, err := l.c.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return liteRows{Rows: rows}, nil
}

func (l liteConn) queryRow(ctx context.Context, q string, args []any) Row {
	return l.c.QueryRowContext(ctx, q, args...)
}

type liteRows struct{ *sql.Rows }

func (r liteRows) Close() { _ = r.Rows.Close() }

// liteDB is the sqlite TxRunner over database/sql
type liteDB struct {
	traced
	db *sql.DB
}

func (d *liteDB) Tx(ctx context.Context, fn func(q Queryer) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(traced{c: liteConn{c: tx}, log: d.log}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *liteDB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *liteDB) Close() error { return d.db.Close() }

func openLite(ctx context.Context, cfg LiteConfig, log *queryLog) (TxRunner, error) {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path, BusyTimeoutMs: cfg.BusyTimeoutMs})
	if err != nil {
		return nil, err
	}
	return &liteDB{traced: traced{c: liteConn{c: db}, log: log}, db: db}, nil
}
