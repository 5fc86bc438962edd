// Package sqlite opens the embedded SQLite store and codes its errors
package sqlite

import (
	"context"
	"database/sql"
	stderrs "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	perr "retrosignal/internal/platform/errors"

	"github.com/mattn/go-sqlite3"
)

// Memory is the path of a private in-memory database
const Memory = ":memory:"

// Config configures the sqlite database
type Config struct {
	Path          string
	BusyTimeoutMs int // default 5000
}

// DSN renders a go-sqlite3 data source name with WAL and a busy timeout
func DSN(cfg Config) string {
	busy := cfg.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(busy))
	if cfg.Path != Memory {
		q.Set("_journal_mode", "WAL")
	}
	return cfg.Path + "?" + q.Encode()
}

// Open opens the database, creating its parent directory, and pings it
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, stderrs.New("sqlite: empty path")
	}
	if cfg.Path != Memory {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.Path == Memory {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

// FromError codes a sqlite error under msg. Locking, a read-only or full file and
// a missing table are Unavailable. nil stays nil
func FromError(err error, msg string) error {
	if err == nil {
		return nil
	}
	code := perr.ErrorCodeDB
	var se sqlite3.Error
	if stderrs.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrReadonly, sqlite3.ErrCantOpen, sqlite3.ErrFull:
			code = perr.ErrorCodeUnavailable
		case sqlite3.ErrConstraint:
			code = perr.ErrorCodeValidation
			if se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				code = perr.ErrorCodeDuplicateKey
			}
		}
	}
	if IsMissingTable(err) {
		code = perr.ErrorCodeUnavailable
	}
	return perr.Wrap(err, code, msg)
}

// IsMissingTable reports a statement against a table that was never created
func IsMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
