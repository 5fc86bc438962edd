// Package api provides the HTTP API for the application
package api

import (
	"retrosignal/internal/app"
	"retrosignal/internal/platform/config"
	"retrosignal/internal/platform/logger"
	phttp "retrosignal/internal/platform/net/http"

	"retrosignal/internal/modkit"
	"retrosignal/internal/modkit/httpkit"
	"retrosignal/internal/modkit/swaggerkit"

	metamod "retrosignal/internal/services/api/meta/module"
	momentsapi "retrosignal/internal/services/api/moments/module"
	rmod "retrosignal/internal/services/retro/module"
	smod "retrosignal/internal/services/signals/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	App            *app.App
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	deps := opt.App.Deps
	sp := opt.App.Signals.Ports().(smod.Ports)
	rp := opt.App.Retro.Ports().(rmod.Ports)

	mods := []modkit.Module{
		metamod.New(deps, modkit.WithPorts(metamod.Ports{Registry: sp.Registry})),
		momentsapi.New(deps, modkit.WithPorts(momentsapi.Ports{
			Facade:   opt.App.Facade(),
			Defaults: rp.Defaults,
		})),
	}

	// Swagger + profiler live outside the versioned tree
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	var names []string
	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
			names = append(names, m.Name())
		}
	})

	if opt.Logger != nil {
		opt.Logger.Info().Strs("modules", names).Bool("swagger", opt.EnableSwagger).Msg("api mounted")
	}
}
