package repo

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"retrosignal/internal/core/patterns"
	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/store"
	"retrosignal/internal/platform/testkit"
	dom "retrosignal/internal/services/signals/domain"
)

type fakeCH struct {
	inserted [][]any
	table    string
	execs    []string
	query    string
	args     []any
	rows     [][]any
	err      error
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if f.err != nil {
		return f.err
	}
	f.table = table
	f.inserted = append(f.inserted, rows...)
	return nil
}

func (f *fakeCH) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.query, f.args = sql, args
	return &fakeRows{data: f.rows, i: -1}, nil
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	if f.err != nil {
		return f.err
	}
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeCH) Close() error { return nil }

type fakeRows struct {
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool { r.i++; return r.i < len(r.data) }
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

func (r *fakeRows) Scan(dst ...any) error {
	row := r.data[r.i]
	if len(dst) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, v := range row {
		reflect.ValueOf(dst[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func TestClickhouse_WriteBuildsColumnRows(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	c := NewClickhouse(f, "")
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	x := rec("causal_1_a", patterns.Causal, "dir", "", at)
	if err := c.Write(context.Background(), []dom.Record{x}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f.table != DefaultTable || len(f.inserted) != 1 {
		t.Fatalf("table=%q rows=%d", f.table, len(f.inserted))
	}
	row := f.inserted[0]
	if len(row) != len(columns) {
		t.Fatalf("row has %d values, want %d", len(row), len(columns))
	}
	if row[3] != "causal" || row[6] != int64(3) || row[1] != "" {
		t.Fatalf("row = %v", row)
	}
	if ts := row[10].(time.Time); ts.Location() != time.UTC {
		t.Fatalf("captured_at not UTC: %v", ts)
	}
	if !strings.Contains(row[9].(string), "New information") {
		t.Fatalf("metadata = %v", row[9])
	}

	if err := c.Write(context.Background(), nil); err != nil || len(f.inserted) != 1 {
		t.Fatalf("empty write should be a no-op")
	}
}

func TestClickhouse_ListByDirective(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &fakeCH{rows: [][]any{{
		"recurrence_1_a", "s1", "dir", "recurrence", "again", "again",
		int64(9), "failing again", 0.85, `{"text_length":20}`, at, at,
	}}}
	c := NewClickhouse(f, "signals")

	got, err := c.ListByDirective(context.Background(), "dir")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(f.query, "FROM signals FINAL WHERE directive_id = ?") {
		t.Fatalf("query = %s", f.query)
	}
	if len(f.args) != 1 || f.args[0] != "dir" {
		t.Fatalf("args = %v", f.args)
	}
	if len(got) != 1 || got[0].Category != patterns.Recurrence || got[0].Position != 9 || got[0].Metadata["text_length"] != float64(20) {
		t.Fatalf("got = %+v", got)
	}
}

func TestClickhouse_MigrateAndErrors(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	c := NewClickhouse(f, "")
	if c.Name() != "clickhouse" {
		t.Fatalf("Name = %q", c.Name())
	}
	if err := c.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(f.execs) != 1 || !strings.Contains(f.execs[0], "ReplacingMergeTree") {
		t.Fatalf("execs = %v", f.execs)
	}

	f.err = errors.New("connection refused")
	at := time.Now()
	if err := c.Write(context.Background(), []dom.Record{rec("a", patterns.Discovery, "d", "", at)}); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("write err = %v", err)
	}
	if _, err := c.ListByDirective(context.Background(), "d"); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("list err = %v", err)
	}

	testkit.MustPanic(t, func() { _ = NewClickhouse(nil, "") })
}
