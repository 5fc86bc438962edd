// Package app composes the store and the signals, retro and moments modules.
// The CLI and the HTTP server both run on top of an App
package app

import (
	"context"

	"retrosignal/internal/modkit"
	"retrosignal/internal/platform/config"
	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/logger"
	"retrosignal/internal/platform/store"
	mdom "retrosignal/internal/services/moments/domain"
	mmod "retrosignal/internal/services/moments/module"
	rmod "retrosignal/internal/services/retro/module"
	sdom "retrosignal/internal/services/signals/domain"
	smod "retrosignal/internal/services/signals/module"
)

// Options configures Open
type Options struct {
	Cfg config.Conf
	// Signals overrides CORE_SIGNALS_ values; zero fields keep config
	Signals smod.Options
}

// App is the composed runtime
type App struct {
	Store   *store.Store
	Deps    modkit.Deps
	Signals *smod.Module
	Retro   *rmod.Module
	Moments *mmod.Module

	log *logger.Logger
}

// openStore is swapped in tests
var openStore = store.Open

// Open opens the selected primary store and wires the modules over it.
// A primary that cannot be opened is logged and skipped; bundles keep working
func Open(ctx context.Context, o Options) *App {
	log := logger.Named("app")

	primary := smod.FromConfig(o.Cfg).Primary
	if o.Signals.Primary != "" {
		primary = o.Signals.Primary
	}

	st, err := openStore(ctx, StoreConfig(o.Cfg, primary), store.WithLogger(*logger.Get()))
	if err != nil {
		log.Warn().Err(err).Str("primary", string(primary)).Msg("primary store unavailable, using bundles only")
		st = &store.Store{}
	}

	deps := modkit.Deps{
		Log:  *logger.Get(),
		Cfg:  o.Cfg,
		PG:   st.PG,
		Lite: st.Lite,
		CH:   st.CH,
	}

	sig := smod.New(deps, o.Signals)
	sp := sig.Ports().(smod.Ports)

	ret := rmod.New(deps, rmod.WithDeps(sp.Retriever, sp.Registry))
	mom := mmod.New(deps, mmod.WithDeps(mmod.Deps{
		Signals: sp,
		Retro:   ret.Ports().(rmod.Ports),
		FlushTo: sig.Options().FlushBackend,
	}))

	log.Info().
		Str("primary", string(primary)).
		Bool("primary_ready", sp.Primary != nil).
		Str("dir", sp.Bundle.Dir()).
		Msg("app ready")

	return &App{Store: st, Deps: deps, Signals: sig, Retro: ret, Moments: mom, log: log}
}

// StoreConfig enables only the backend the primary selection needs. A missing
// DBURL is left blank so Open fails and the app runs on bundles
func StoreConfig(root config.Conf, primary smod.Primary) store.Config {
	cfg := store.Config{AppName: "retrosignal"}
	switch primary {
	case smod.PrimaryPostgres:
		pg := root.Prefix("SERVICE_PGSQL_")
		cfg.PG = store.PGConfig{
			Enabled:     true,
			URL:         pg.MayString("DBURL", ""),
			MaxConns:    int32(pg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pg.MayInt("SLOW_MS", 500),
			LogSQL:      pg.MayBool("LOG_SQL", false),
		}
	case smod.PrimarySQLite:
		lite := root.Prefix("SERVICE_SQLITE_")
		cfg.Lite = store.LiteConfig{
			Enabled:       true,
			Path:          lite.MayString("PATH", "retrosignal.db"),
			BusyTimeoutMs: lite.MayInt("BUSY_TIMEOUT_MS", 5000),
			LogSQL:        lite.MayBool("LOG_SQL", false),
		}
	case smod.PrimaryClickhouse:
		ch := root.Prefix("SERVICE_CLICKHOUSE_")
		cfg.CH = store.CHConfig{
			Enabled:    true,
			URL:        ch.MayString("DBURL", ""),
			ClientName: "retrosignal",
			ClientTag:  "signals",
		}
	}
	return cfg
}

// Facade returns the learning moments facade
func (a *App) Facade() mdom.FacadePort { return a.Moments.Facade() }

// Migrate creates the primary table when one is configured
func (a *App) Migrate(ctx context.Context) (string, error) {
	p := a.Signals.Ports().(smod.Ports).Primary
	if p == nil {
		return "", perr.Newf(perr.ErrorCodeValidation, "no primary store configured (set CORE_SIGNALS_PRIMARY)")
	}
	if err := p.Migrate(ctx); err != nil {
		return p.Name(), err
	}
	a.log.Info().Str("dialect", p.Name()).Msg("primary migrated")
	return p.Name(), nil
}

// Close drains the signals buffer, then closes the store
func (a *App) Close(ctx context.Context) (sdom.FlushReport, error) {
	rep := a.Signals.Close(ctx)
	if !rep.OK() {
		a.log.Error().Int("requeued", rep.Requeued).Msg("signals left unflushed at shutdown")
	}
	return rep, a.Store.Close(ctx)
}
