// Package repokit binds repositories to a store seam
package repokit

import (
	"context"

	"retrosignal/internal/platform/store"
)

// Queryer is the read and write surface SQL repos run against
type Queryer = store.Queryer

// TxRunner is a Queryer that can open transactions
type TxRunner = store.TxRunner

// Binder builds a repo over a Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// MustBind binds b to q and panics when q is nil
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return b.Bind(q)
}

// WithTx runs fn inside a transaction on tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}
