// Package module mounts the meta endpoints at the API root
package module

import (
	"time"

	"retrosignal/internal/core/patterns"
	"retrosignal/internal/core/version"
	"retrosignal/internal/modkit"
	"retrosignal/internal/modkit/httpkit"
	"retrosignal/internal/modkit/swaggerkit"
	metahttp "retrosignal/internal/services/api/meta/http"
)

func init() {
	swaggerkit.Register(stampVersion)
}

// stampVersion reports the running build in the served document
func stampVersion(spec map[string]any) {
	if info, ok := spec["info"].(map[string]any); ok {
		info["version"] = version.Info().Version
	}
}

// Ports optionally carries the pattern registry reported by /service
type Ports struct {
	Registry *patterns.Registry
}

// Module serves health, ready, version and service
type Module struct {
	name string
	deps metahttp.Deps
}

// New builds the module; WithPorts(Ports{...}) is optional
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta")}, opts...)...)

	d := metahttp.Deps{
		ServiceName: "retrosignal-api",
		StartedAt:   time.Now(),
		PG:          deps.PG,
		Lite:        deps.Lite,
		CH:          deps.CH,
	}
	if p, ok := b.Ports.(Ports); ok && p.Registry != nil {
		d.Patterns = func() map[string]int { return ruleCounts(p.Registry) }
	}
	return &Module{name: b.Name, deps: d}
}

func ruleCounts(reg *patterns.Registry) map[string]int {
	out := map[string]int{}
	for _, c := range reg.Snapshot() {
		out[string(c.Name)] = len(c.Rules)
	}
	return out
}

func (m *Module) MountRoutes(r httpkit.Router) { metahttp.Register(r, m.deps) }

func (m *Module) Name() string { return m.name }

func (m *Module) Ports() any { return nil }
