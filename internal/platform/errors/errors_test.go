package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(ErrorCodeValidation, "x"), http.StatusBadRequest},
		{JSONErrf("bad body"), http.StatusBadRequest},
		{Unavailablef("down"), http.StatusServiceUnavailable},
		{New(ErrorCodeTimeout, "slow"), http.StatusGatewayTimeout},
		{New(ErrorCodeDuplicateKey, "dup"), http.StatusConflict},
		{PanicErrf("boom"), http.StatusInternalServerError},
		{New(ErrorCodeDB, "db"), http.StatusInternalServerError},
		{stderrs.New("foreign"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWrap_KeepsCauseAndCode(t *testing.T) {
	cause := stderrs.New("root")
	err := fmt.Errorf("outer: %w", Wrapf(cause, ErrorCodeDB, "insert %s", "t"))

	if !IsCode(err, ErrorCodeDB) {
		t.Fatalf("code = %v", CodeOf(err))
	}
	if !stderrs.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if got := Message(err); got != "insert t" {
		t.Fatalf("Message = %q", got)
	}
	if got := err.Error(); got != "outer: insert t: root" {
		t.Fatalf("Error = %q", got)
	}
	if got := Message(cause); got != "root" {
		t.Fatalf("foreign Message = %q", got)
	}
	if CodeOf(cause) != ErrorCodeUnknown {
		t.Fatalf("foreign code = %v", CodeOf(cause))
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}
	if got := CodeOf(FromContext(context.DeadlineExceeded, "flush")); got != ErrorCodeTimeout {
		t.Fatalf("deadline = %v", got)
	}
	if got := CodeOf(FromContext(fmt.Errorf("w: %w", context.Canceled), "flush")); got != ErrorCodeUnavailable {
		t.Fatalf("canceled = %v", got)
	}
	if got := CodeOf(FromContext(stderrs.New("other"), "flush")); got != ErrorCodeUnknown {
		t.Fatalf("other = %v", got)
	}
}

func TestFromPostgres(t *testing.T) {
	cases := []struct {
		state string
		want  ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23502", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"42P01", ErrorCodeUnavailable},
		{"42703", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"40001", ErrorCodeDB},
	}
	for _, c := range cases {
		err := FromPostgres(fmt.Errorf("exec: %w", &pgconn.PgError{Code: c.state}), "insert")
		if got := CodeOf(err); got != c.want {
			t.Fatalf("%s: code = %v, want %v", c.state, got, c.want)
		}
	}

	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}
	if got := CodeOf(FromPostgres(stderrs.New("conn reset"), "x")); got != ErrorCodeDB {
		t.Fatalf("non-pg error = %v, want DB", got)
	}
}

func TestIsUndefinedTable(t *testing.T) {
	missing := Wrap(&pgconn.PgError{Code: "42P01"}, ErrorCodeUnavailable, "select")
	if !IsUndefinedTable(missing) {
		t.Fatalf("42P01 should be undefined table")
	}
	if IsUndefinedTable(&pgconn.PgError{Code: "42703"}) || IsUndefinedTable(stderrs.New("relation does not exist")) {
		t.Fatalf("only typed 42P01 counts")
	}
}
