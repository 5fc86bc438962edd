// Package module wires the signals capture pipeline: registry, detector, buffer, flusher and retriever
package module

import (
	"context"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/core/patterns"
	"retrosignal/internal/modkit"
	"retrosignal/internal/modkit/httpkit"
	"retrosignal/internal/modkit/repokit"
	"retrosignal/internal/platform/logger"
	dom "retrosignal/internal/services/signals/domain"
	"retrosignal/internal/services/signals/repo"
	"retrosignal/internal/services/signals/service"
)

// Ports holds the ports exposed by the signals module
type Ports struct {
	Registry  *patterns.Registry
	Detector  *detector.Detector
	Store     dom.StorePort
	Retriever dom.RetrieverPort
	// Primary is nil when no database is configured
	Primary dom.PrimaryStorage
	Bundle  dom.BundleStorage
}

// Module owns the buffer and flusher lifecycles
type Module struct {
	deps    modkit.Deps
	opts    Options
	ports   Ports
	buffer  *service.Buffer
	flusher *service.Flusher
}

// New constructs the signals module. Non-zero overrides win over CORE_SIGNALS_ config
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("signals")}, opts...)...)
	log := logger.Named(b.Name)

	o := FromConfig(deps.Cfg).merge(overrides)

	reg, err := patterns.Load()
	if err != nil {
		panic(err)
	}
	if n, err := reg.ApplyOverlay(o.PatternsFile); err != nil {
		log.Warn().Err(err).Str("file", o.PatternsFile).Msg("pattern overlay ignored")
	} else if n > 0 {
		log.Info().Int("rules", n).Str("file", o.PatternsFile).Msg("pattern overlay applied")
	}

	bundle := repo.NewBundle(o.Dir)
	primary := pickPrimary(deps, o, log)

	// a nil interface, never a typed nil, reaches the buffer
	var writer dom.Writer
	var reader dom.DirectiveReader
	if primary != nil {
		writer, reader = primary, primary
	}

	buf := service.NewBuffer(service.Config{
		Threshold:      o.Threshold,
		Default:        o.FlushBackend,
		AttemptTimeout: o.AttemptTimeout,
	}, writer, bundle)

	m := &Module{
		deps:    deps,
		opts:    o,
		buffer:  buf,
		flusher: service.NewFlusher(buf, o.FlushInterval, o.FlushBackend),
	}
	m.ports = Ports{
		Registry:  reg,
		Detector:  detector.New(reg, detector.Options{ContextWindow: o.ContextWindow}),
		Store:     buf,
		Retriever: service.NewRetriever(reader, bundle),
		Primary:   primary,
		Bundle:    bundle,
	}
	return m
}

func pickPrimary(deps modkit.Deps, o Options, log *logger.Logger) dom.PrimaryStorage {
	switch o.Primary {
	case PrimaryPostgres:
		if deps.PG != nil {
			return repokit.MustBind(repo.NewSQL(repo.Postgres, o.Table), deps.PG)
		}
	case PrimarySQLite:
		if deps.Lite != nil {
			return repokit.MustBind(repo.NewSQL(repo.SQLite, o.Table), deps.Lite)
		}
	case PrimaryClickhouse:
		if deps.CH != nil {
			return repo.NewClickhouse(deps.CH, o.Table)
		}
	default:
		return nil
	}
	log.Warn().Str("primary", string(o.Primary)).Msg("primary store not opened, using bundles only")
	return nil
}

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Flusher returns the periodic flusher; the caller starts and stops it
func (m *Module) Flusher() *service.Flusher { return m.flusher }

// Close stops the flusher, drains detached flushes and flushes what is left
func (m *Module) Close(ctx context.Context) dom.FlushReport {
	m.flusher.Stop()
	return m.buffer.Close(ctx)
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "signals" }

// Prefix returns the module config prefix
func (m *Module) Prefix() string { return "CORE_SIGNALS_" }

// MountRoutes returns no HTTP routes; the moments API fronts this module
func (m *Module) MountRoutes(_ httpkit.Router) {}
