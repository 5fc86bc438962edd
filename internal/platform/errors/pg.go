package errors

import (
	stderrs "errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the stores distinguish
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
	pgCheckViolation   = "23514"
	pgReadOnlyTx       = "25006"
	pgCannotConnectNow = "57P03"
	pgUndefinedTable   = "42P01"
	pgUndefinedColumn  = "42703"
)

func pgState(err error) string {
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUndefinedTable reports a missing relation, i.e. a schema that was never migrated
func IsUndefinedTable(err error) bool { return pgState(err) == pgUndefinedTable }

// FromPostgres codes a pgx error under msg. Schema drift and server-side
// unavailability are Unavailable so writers fall through to their next target.
// nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code := ErrorCodeDB
	switch pgState(err) {
	case pgUniqueViolation:
		code = ErrorCodeDuplicateKey
	case pgNotNullViolation, pgCheckViolation:
		code = ErrorCodeValidation
	case pgUndefinedTable, pgUndefinedColumn, pgReadOnlyTx, pgCannotConnectNow:
		code = ErrorCodeUnavailable
	}
	return Wrap(err, code, msg)
}
