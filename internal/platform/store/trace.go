package store

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"retrosignal/internal/platform/logger"
)

// queryLog logs every statement regardless of the root level. nil logs nothing
type queryLog struct {
	log  logger.Logger
	slow time.Duration
}

func newQueryLog(root logger.Logger, component string, slow time.Duration) *queryLog {
	return &queryLog{
		log:  root.Level(zerolog.DebugLevel).With().Str("component", component).Logger(),
		slow: slow,
	}
}

func (l *queryLog) done(sql string, args []any, start time.Time, err error) {
	if l == nil {
		return
	}
	took := time.Since(start)
	evt := l.log.Info()
	if l.slow > 0 && took >= l.slow {
		evt = l.log.Warn().Bool("slow", true)
	}
	evt.Str("sql", strings.Join(strings.Fields(sql), " ")).
		Interface("args", args).
		Dur("elapsed", took).
		Err(err).
		Msg("query")
}

// conn is the raw statement surface of one dialect, pooled or inside a transaction
type conn interface {
	exec(ctx context.Context, sql string, args []any) (int64, error)
	query(ctx context.Context, sql string, args []any) (Rows, error)
	queryRow(ctx context.Context, sql string, args []any) Row
}

// traced implements Queryer over a conn, logging each statement
type traced struct {
	c   conn
	log *queryLog
}

func (t traced) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	start := time.Now()
	n, err := t.c.exec(ctx, sql, args)
	t.log.done(sql, args, start, err)
	return n, err
}

func (t traced) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := t.c.query(ctx, sql, args)
	t.log.done(sql, args, start, err)
	return rows, err
}

// QueryRow logs once Scan has run, since that is when the row's error surfaces
func (t traced) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return scanHook{row: t.c.queryRow(ctx, sql, args), after: func(err error) {
		t.log.done(sql, args, start, err)
	}}
}

type scanHook struct {
	row   Row
	after func(error)
}

func (h scanHook) Scan(dest ...any) error {
	err := h.row.Scan(dest...)
	h.after(err)
	return err
}
