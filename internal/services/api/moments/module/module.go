// Package module mounts the learning moments endpoints at the API root
package module

import (
	"retrosignal/internal/modkit"
	"retrosignal/internal/modkit/httpkit"
	momentshttp "retrosignal/internal/services/api/moments/http"
	mdom "retrosignal/internal/services/moments/domain"
	rdom "retrosignal/internal/services/retro/domain"
)

// Ports is what the API module needs injected
type Ports struct {
	Facade   mdom.FacadePort
	Defaults rdom.Options
}

// Module serves /signals and /directives
type Module struct {
	name  string
	ports Ports
}

// New builds the module. It panics without WithPorts(Ports{Facade: ...})
func New(_ modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("moments-api")}, opts...)...)
	p, ok := b.Ports.(Ports)
	if !ok || p.Facade == nil {
		panic("moments api module: expected WithPorts(Ports{Facade: ...})")
	}
	return &Module{name: b.Name, ports: p}
}

// MountRoutes mounts /signals and /directives on r
func (m *Module) MountRoutes(r httpkit.Router) {
	momentshttp.Register(r, m.ports.Facade, m.ports.Defaults)
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the injected facade
func (m *Module) Ports() any { return m.ports }
