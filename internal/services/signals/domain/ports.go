package domain

import (
	"context"

	"retrosignal/internal/core/detector"
)

// Writer persists a batch of records
type Writer interface {
	Write(ctx context.Context, xs []Record) error
}

// DirectiveReader lists the records captured for one directive, most recent first
type DirectiveReader interface {
	ListByDirective(ctx context.Context, directiveID string) ([]Record, error)
}

// PrimaryStorage is a database backend
type PrimaryStorage interface {
	Writer
	DirectiveReader
	// Migrate creates the table and indexes when missing
	Migrate(ctx context.Context) error
	// Name is the dialect, e.g. "postgres"
	Name() string
}

// BundleStorage is the file backend
type BundleStorage interface {
	Writer
	DirectiveReader
	ListAll(ctx context.Context) ([]Record, error)
	ListBySession(ctx context.Context, sessionID string) ([]Record, error)
	Dir() string
}

// StorePort accepts detected signals and persists them in batches
type StorePort interface {
	Store(sig detector.Signal) string
	StoreMany(sigs []detector.Signal) []string
	Flush(ctx context.Context, to Backend) FlushReport
	Pending() int
}

// RetrieverPort reads persisted records back
type RetrieverPort interface {
	ForDirective(ctx context.Context, directiveID string, from Backend) ([]Record, error)
	ForSession(ctx context.Context, sessionID string) ([]Record, error)
}
