// Package module wires the retrospective aggregator
package module

import (
	"retrosignal/internal/modkit"
	"retrosignal/internal/modkit/httpkit"
	dom "retrosignal/internal/services/retro/domain"
	"retrosignal/internal/services/retro/service"
)

// Ports exposed by the retro module
type Ports struct {
	Aggregator dom.AggregatorPort
	// Defaults are the configured aggregation options
	Defaults dom.Options
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the retro module. It requires WithDeps
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("retro")}, opts...)...)

	in, ok := b.Ports.(Deps)
	if !ok {
		panic("retro module: expected WithDeps(source, registry)")
	}
	if in.Source == nil || in.Registry == nil {
		panic("retro module: Deps missing Source or Registry")
	}

	o := FromConfig(deps.Cfg)
	m := &Module{deps: deps}
	m.ports = Ports{
		Aggregator: service.New(in.Source, in.Registry, service.Config{From: o.From}),
		Defaults:   dom.Options{Deduplicate: o.Deduplicate, MinWeight: o.MinWeight},
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "retro" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix
func (m *Module) Prefix() string { return "CORE_RETRO_" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
