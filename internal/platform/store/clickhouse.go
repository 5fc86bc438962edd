package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// chDB is the Clickhouse seam over a native clickhouse-go connection
type chDB struct{ conn driver.Conn }

var openCHConn = clickhouse.Open

func openCH(ctx context.Context, cfg CHConfig) (Clickhouse, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("clickhouse: empty url")
	}
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: parse dsn: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	opts.ClientInfo = clientInfo(cfg.ClientName, cfg.ClientTag)

	conn, err := openCHConn(opts)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse: ping: %w", err)
	}
	return &chDB{conn: conn}, nil
}

// clientInfo tags our queries in system.query_log with product, role, commit and host
func clientInfo(product, role string) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	commit := ""
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				commit = s.Value[:7]
			}
		}
	}
	or := func(s string) string {
		if s = strings.TrimSpace(s); s == "" {
			return "unknown"
		}
		return s
	}
	return clickhouse.ClientInfo{Products: []struct{ Name, Version string }{
		{Name: "retrosignal", Version: or(product)},
		{Name: "role", Version: or(role)},
		{Name: "go", Version: runtime.Version()},
		{Name: "commit", Version: or(commit)},
		{Name: "host", Version: or(host)},
	}}
}

// Insert sends rows as one batch; values follow table column order
func (c *chDB) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return fmt.Errorf("clickhouse: prepare %s: %w", table, err)
	}
	for i, r := range rows {
		if err := batch.Append(r...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("clickhouse: append row %d: %w", i, err)
		}
	}
	return batch.Send()
}

func (c *chDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{Rows: rows}, nil
}

func (c *chDB) Exec(ctx context.Context, sql string, args ...any) error {
	return c.conn.Exec(ctx, sql, args...)
}

func (c *chDB) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

func (c *chDB) Close() error { return c.conn.Close() }

type chRows struct{ driver.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
