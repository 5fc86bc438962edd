// Package repo provides the signals persistence backends: SQL (postgres, sqlite), ClickHouse and file bundles
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"retrosignal/internal/core/patterns"
	"retrosignal/internal/modkit/repokit"
	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/store"
	"retrosignal/internal/platform/store/sqlite"
	dom "retrosignal/internal/services/signals/domain"
)

// DefaultTable is the table records are written to
const DefaultTable = "learning_signals"

// Dialect selects SQL flavour details: placeholders, column types, error mapping
type Dialect string

const (
	// Postgres via pgx
	Postgres Dialect = "postgres"
	// SQLite via go-sqlite3
	SQLite Dialect = "sqlite"
)

// rows per INSERT statement
const chunkSize = 500

// columns in insert order
var columns = []string{
	"id", "session_id", "directive_id", "category", "pattern", "matched_text",
	"position", "context", "weight", "metadata", "captured_at", "stored_at",
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// MustTable validates a table identifier; it is interpolated into SQL
func MustTable(name string) string {
	if name == "" {
		return DefaultTable
	}
	if !tableName.MatchString(name) {
		panic(fmt.Sprintf("signals repo: invalid table name %q", name))
	}
	return name
}

type (
	sqlRepo struct {
		q       repokit.Queryer
		tx      repokit.TxRunner // nil when q cannot open transactions
		dialect Dialect
		table   string
	}
	sqlBinder struct {
		dialect Dialect
		table   string
	}
)

// NewSQL constructs a repo binder for a SQL dialect
func NewSQL(d Dialect, table string) repokit.Binder[dom.PrimaryStorage] {
	if d != Postgres && d != SQLite {
		panic(fmt.Sprintf("signals repo: unknown dialect %q", d))
	}
	return sqlBinder{dialect: d, table: MustTable(table)}
}

// Bind implements repokit.Binder
func (b sqlBinder) Bind(q repokit.Queryer) dom.PrimaryStorage {
	r := &sqlRepo{q: q, dialect: b.dialect, table: b.table}
	if tx, ok := q.(repokit.TxRunner); ok {
		r.tx = tx
	}
	return r
}

// Name implements dom.PrimaryStorage
func (s *sqlRepo) Name() string { return string(s.dialect) }

func (s *sqlRepo) ph(n int) string {
	if s.dialect == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// wrap codes a driver error. A missing table names the migrate command so the
// attempt log tells the operator what to run
func (s *sqlRepo) wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if perr.IsUndefinedTable(err) || sqlite.IsMissingTable(err) {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s: table %s missing, run `retrosignal migrate`", msg, s.table)
	}
	if s.dialect == Postgres {
		return perr.FromPostgres(err, msg)
	}
	return sqlite.FromError(err, msg)
}

// inTx runs fn in one transaction when the seam supports it
func (s *sqlRepo) inTx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	if s.tx == nil {
		return fn(s.q)
	}
	return repokit.WithTx(ctx, s.tx, fn)
}

// Write implements dom.Writer. A batch lands whole or not at all, and rows with an
// existing id are skipped so retried flushes stay idempotent
func (s *sqlRepo) Write(ctx context.Context, xs []dom.Record) error {
	if len(xs) == 0 {
		return nil
	}
	return s.inTx(ctx, func(q repokit.Queryer) error {
		for start := 0; start < len(xs); start += chunkSize {
			end := min(start+chunkSize, len(xs))
			if err := s.writeChunk(ctx, q, xs[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlRepo) writeChunk(ctx context.Context, q repokit.Queryer, xs []dom.Record) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + s.table + " (" + strings.Join(columns, ", ") + ") VALUES ")

	args := make([]any, 0, len(xs)*len(columns))
	for i, r := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for c := range columns {
			if c > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(s.ph(i*len(columns) + c + 1))
		}
		sb.WriteByte(')')

		meta, err := encodeMetadata(r.Metadata)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "encode metadata for %s", r.ID)
		}
		args = append(args,
			r.ID, nullIfBlank(r.SessionID), nullIfBlank(r.DirectiveID), string(r.Category),
			r.Pattern, r.MatchedText, r.Position, r.Context, r.Weight, meta,
			r.Timestamp.UTC(), r.StoredAt.UTC(),
		)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")

	if _, err := q.Exec(ctx, sb.String(), args...); err != nil {
		return s.wrap(err, "insert "+s.table)
	}
	return nil
}

// ListByDirective implements dom.DirectiveReader
func (s *sqlRepo) ListByDirective(ctx context.Context, directiveID string) ([]dom.Record, error) {
	q := "SELECT " + strings.Join(columns, ", ") + " FROM " + s.table +
		" WHERE directive_id = " + s.ph(1) + " ORDER BY captured_at DESC, id DESC"

	out, err := store.Many(ctx, s.q, scanRecord, q, directiveID)
	if err != nil {
		return nil, s.wrap(err, "select "+s.table)
	}
	return out, nil
}

func scanRecord(row store.Row) (dom.Record, error) {
	var (
		r         dom.Record
		session   sql.NullString
		directive sql.NullString
		category  string
		meta      string
	)
	if err := row.Scan(
		&r.ID, &session, &directive, &category, &r.Pattern, &r.MatchedText,
		&r.Position, &r.Context, &r.Weight, &meta, &r.Timestamp, &r.StoredAt,
	); err != nil {
		return dom.Record{}, err
	}
	r.Category = patterns.Category(category)
	r.SessionID = session.String
	r.DirectiveID = directive.String
	r.Metadata = decodeMetadata(meta)
	r.Timestamp = r.Timestamp.UTC()
	r.StoredAt = r.StoredAt.UTC()
	return r, nil
}

// Migrate implements dom.PrimaryStorage
func (s *sqlRepo) Migrate(ctx context.Context) error {
	return s.inTx(ctx, func(q repokit.Queryer) error {
		for _, stmt := range s.ddl() {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return s.wrap(err, "migrate "+s.table)
			}
		}
		return nil
	})
}

func (s *sqlRepo) ddl() []string {
	ts, float := "TIMESTAMPTZ", "DOUBLE PRECISION"
	if s.dialect == SQLite {
		ts, float = "TIMESTAMP", "REAL"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id           TEXT PRIMARY KEY,
			session_id   TEXT,
			directive_id TEXT,
			category     TEXT NOT NULL,
			pattern      TEXT NOT NULL,
			matched_text TEXT NOT NULL,
			position     INTEGER NOT NULL,
			context      TEXT NOT NULL,
			weight       ` + float + ` NOT NULL,
			metadata     TEXT NOT NULL DEFAULT '{}',
			captured_at  ` + ts + ` NOT NULL,
			stored_at    ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + s.table + `_directive_idx ON ` + s.table + ` (directive_id, captured_at DESC)`,
		`CREATE INDEX IF NOT EXISTS ` + s.table + `_session_idx ON ` + s.table + ` (session_id)`,
	}
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeMetadata is lenient: a corrupt column yields empty metadata, not a failed read
func decodeMetadata(s string) map[string]any {
	m := map[string]any{}
	if s == "" {
		return m
	}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

// compile time checks
var _ dom.PrimaryStorage = (*sqlRepo)(nil)

// nullIfBlank stores blank ids as NULL
func nullIfBlank(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
