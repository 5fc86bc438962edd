// Package module wires the learning moments facade from the signals and retro ports
package module

import (
	"retrosignal/internal/modkit"
	"retrosignal/internal/modkit/httpkit"
	dom "retrosignal/internal/services/moments/domain"
	"retrosignal/internal/services/moments/service"
	rmod "retrosignal/internal/services/retro/module"
	sdom "retrosignal/internal/services/signals/domain"
	smod "retrosignal/internal/services/signals/module"
)

// Deps carries the upstream module ports
type Deps struct {
	Signals smod.Ports
	Retro   rmod.Ports
	// FlushTo is where a forced flush goes; zero means the file backend
	FlushTo sdom.Backend
}

// WithDeps passes upstream ports through modkit.WithPorts
func WithDeps(d Deps) modkit.Option { return modkit.WithPorts(d) }

// Ports exposed by the moments module
type Ports struct {
	Facade dom.FacadePort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	name  string
	ports Ports
}

// New constructs the moments module. It requires WithDeps
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("moments")}, opts...)...)

	in, ok := b.Ports.(Deps)
	if !ok {
		panic("moments module: expected WithDeps(signals, retro)")
	}

	f := service.New(service.Deps{
		Registry:   in.Signals.Registry,
		Detector:   in.Signals.Detector,
		Store:      in.Signals.Store,
		Aggregator: in.Retro.Aggregator,
		Defaults:   in.Retro.Defaults,
		FlushTo:    in.FlushTo,
	})
	return &Module{deps: deps, name: b.Name, ports: Ports{Facade: f}}
}

// Facade returns the facade port
func (m *Module) Facade() dom.FacadePort { return m.ports.Facade }

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes returns no HTTP routes; api/moments mounts them
func (m *Module) MountRoutes(_ httpkit.Router) {}
