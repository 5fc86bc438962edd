package repo

import (
	"context"
	"strings"
	"time"

	"retrosignal/internal/core/patterns"
	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/store"
	dom "retrosignal/internal/services/signals/domain"
)

// CH is the ClickHouse primary backend
type CH struct {
	db    store.Clickhouse
	table string
}

// NewClickhouse constructs the ClickHouse backend over the store seam
func NewClickhouse(db store.Clickhouse, table string) *CH {
	if db == nil {
		panic("signals repo: nil clickhouse")
	}
	return &CH{db: db, table: MustTable(table)}
}

var _ dom.PrimaryStorage = (*CH)(nil)

// Name implements dom.PrimaryStorage
func (c *CH) Name() string { return "clickhouse" }

// Write implements dom.Writer. Duplicate ids collapse on merge (ReplacingMergeTree)
func (c *CH) Write(ctx context.Context, xs []dom.Record) error {
	if len(xs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(xs))
	for _, r := range xs {
		meta, err := encodeMetadata(r.Metadata)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "encode metadata for %s", r.ID)
		}
		rows = append(rows, []any{
			r.ID, r.SessionID, r.DirectiveID, string(r.Category), r.Pattern, r.MatchedText,
			int64(r.Position), r.Context, r.Weight, meta, r.Timestamp.UTC(), r.StoredAt.UTC(),
		})
	}
	if err := c.db.Insert(ctx, c.table, rows); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "clickhouse insert %s", c.table)
	}
	return nil
}

// ListByDirective implements dom.DirectiveReader
func (c *CH) ListByDirective(ctx context.Context, directiveID string) ([]dom.Record, error) {
	q := "SELECT " + strings.Join(columns, ", ") + " FROM " + c.table +
		" FINAL WHERE directive_id = ? ORDER BY captured_at DESC, id DESC"

	rows, err := c.db.Query(ctx, q, directiveID)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "clickhouse select %s", c.table)
	}
	defer rows.Close()

	var out []dom.Record
	for rows.Next() {
		var (
			r        dom.Record
			category string
			pos      int64
			meta     string
			captured time.Time
			stored   time.Time
		)
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.DirectiveID, &category, &r.Pattern, &r.MatchedText,
			&pos, &r.Context, &r.Weight, &meta, &captured, &stored,
		); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeDB, "clickhouse scan %s", c.table)
		}
		r.Category = patterns.Category(category)
		r.Position = int(pos)
		r.Metadata = decodeMetadata(meta)
		r.Timestamp = captured.UTC()
		r.StoredAt = stored.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "clickhouse iterate %s", c.table)
	}
	return out, nil
}

// Migrate implements dom.PrimaryStorage
func (c *CH) Migrate(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + c.table + ` (
		id           String,
		session_id   String,
		directive_id String,
		category     LowCardinality(String),
		pattern      String,
		matched_text String,
		position     Int64,
		context      String,
		weight       Float64,
		metadata     String,
		captured_at  DateTime64(3, 'UTC'),
		stored_at    DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree
	ORDER BY (directive_id, captured_at, id)`
	if err := c.db.Exec(ctx, ddl); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "clickhouse migrate %s", c.table)
	}
	return nil
}
