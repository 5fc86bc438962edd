// Package modkit wires service and API modules from shared deps
package modkit

import (
	"retrosignal/internal/modkit/httpkit"
	"retrosignal/internal/modkit/repokit"
	"retrosignal/internal/platform/config"
	"retrosignal/internal/platform/logger"
	"retrosignal/internal/platform/store"
)

// Module is what an API module exposes to the server
type Module interface {
	MountRoutes(r httpkit.Router)
	// Ports returns the module's port set for cross wiring, nil when it has none
	Ports() any
	Name() string
}

// Deps holds the shared dependencies handed to every module.
// Stores are nil when their backend is disabled
type Deps struct {
	Log  logger.Logger
	Cfg  config.Conf
	PG   repokit.TxRunner
	Lite repokit.TxRunner
	CH   store.Clickhouse
}

// Built is the result of applying options
type Built struct {
	Name  string
	Ports any
}

// Option adjusts a module build
type Option func(*Built)

// WithName sets the module name used in logs
func WithName(name string) Option {
	return func(b *Built) { b.Name = name }
}

// WithPorts injects upstream ports; the concrete type belongs to the importing module
func WithPorts[T any](p T) Option {
	return func(b *Built) { b.Ports = p }
}

// Build applies opts in order
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	return b
}
