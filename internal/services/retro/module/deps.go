package module

import (
	"retrosignal/internal/core/patterns"
	"retrosignal/internal/modkit"
	dom "retrosignal/internal/services/retro/domain"
)

// Deps are the signals ports the aggregator reads through
type Deps struct {
	Source   dom.Source
	Registry *patterns.Registry
}

// WithDeps passes the signals retriever and registry without exposing the signals module
func WithDeps(src dom.Source, reg *patterns.Registry) modkit.Option {
	return modkit.WithPorts(Deps{Source: src, Registry: reg})
}
