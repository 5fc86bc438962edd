package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTestLite(t *testing.T, opts ...Option) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, Config{Lite: LiteConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "x.db"), LogSQL: true}}, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })
	if _, err := s.Lite.Exec(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	return s
}

func TestOpen_LiteOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestLite(t)
	if s.PG != nil || s.CH != nil {
		t.Fatalf("unexpected backends PG=%T CH=%T", s.PG, s.CH)
	}

	err := s.Lite.Tx(ctx, func(q Queryer) error {
		n, err := q.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?), (?, ?)`, "a", 1, "b", 2)
		if n != 2 {
			t.Errorf("affected = %d", n)
		}
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	var sum int64
	if err := s.Lite.QueryRow(ctx, `SELECT SUM(v) FROM kv`).Scan(&sum); err != nil || sum != 3 {
		t.Fatalf("sum = %d err=%v", sum, err)
	}
	keys, err := Many(ctx, s.Lite, func(r Row) (string, error) {
		var k string
		var v int
		err := r.Scan(&k, &v)
		return k, err
	}, `SELECT k, v FROM kv ORDER BY k`)
	if err != nil || strings.Join(keys, ",") != "a,b" {
		t.Fatalf("keys = %v err=%v", keys, err)
	}
}

func TestLite_TxRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestLite(t)
	boom := errors.New("boom")
	err := s.Lite.Tx(ctx, func(q Queryer) error {
		if _, err := q.Exec(ctx, `INSERT INTO kv (k, v) VALUES ('a', 1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	var n int
	if err := s.Lite.QueryRow(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("rows after rollback = %d err=%v", n, err)
	}
}

func TestQueryLog_WritesStatements(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := openTestLite(t, WithLogger(zerolog.New(&buf).Level(zerolog.ErrorLevel)))

	ctx := context.Background()
	var one int
	if err := s.Lite.QueryRow(ctx, "SELECT\n\t1").Scan(&one); err != nil {
		t.Fatalf("select: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"sql":"SELECT 1"`) || !strings.Contains(out, `"component":"sqlite"`) {
		t.Fatalf("query log = %s", out)
	}
}

func TestQueryLog_SlowIsWarn(t *testing.T) {
	var buf bytes.Buffer
	l := newQueryLog(zerolog.New(&buf), "pg", time.Nanosecond)
	l.done("SELECT 1", nil, time.Now().Add(-time.Millisecond), nil)
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), `"slow":true`) {
		t.Fatalf("slow line = %s", buf.String())
	}

	var none *queryLog
	none.done("SELECT 1", nil, time.Now(), nil)
}

func TestOpen_EmptyURLFailsFast(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Open(ctx, Config{PG: PGConfig{Enabled: true}}); err == nil || !strings.Contains(err.Error(), "empty url") {
		t.Fatalf("pg err = %v", err)
	}
	if _, err := Open(ctx, Config{CH: CHConfig{Enabled: true, URL: "  "}}); err == nil || !strings.Contains(err.Error(), "empty url") {
		t.Fatalf("ch err = %v", err)
	}
}

func TestOpen_LiteEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Lite: LiteConfig{Enabled: true}})
	if err == nil {
		t.Fatalf("expected error for empty sqlite path")
	}
}

func TestClientInfo(t *testing.T) {
	t.Parallel()

	info := clientInfo("retrosignal", "")
	if len(info.Products) != 5 {
		t.Fatalf("products = %+v", info.Products)
	}
	if info.Products[0].Version != "retrosignal" || info.Products[1].Version != "unknown" {
		t.Fatalf("products = %+v", info.Products)
	}
}
