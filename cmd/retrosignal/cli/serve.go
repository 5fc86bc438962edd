package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"retrosignal/internal/platform/config"
	"retrosignal/internal/platform/logger"
	phttp "retrosignal/internal/platform/net/http"
	"retrosignal/internal/services/api"
)

const serveLongDesc string = `Run the HTTP API.

The periodic flusher runs alongside the server. On SIGINT or SIGTERM the
server stops accepting requests, then the buffer is drained.

Environment:
  CORE_API_API_PORT   listen address (default :4000)
  CORE_API_SWAGGER    serve /api/docs (default true)
  CORE_API_PROFILER   serve /debug/pprof (default false)`

// shutdownGrace bounds server shutdown and the final flush
const shutdownGrace = 15 * time.Second

func newServeCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ro.serve(cmd.Context())
		},
	}
}

func (ro *rootOptions) serve(ctx context.Context) error {
	log := logger.Named("serve")
	apiCfg := config.New().Prefix("CORE_API_")

	a := ro.openCtx(ctx)
	a.Signals.Flusher().Start(ctx)

	srv := phttp.NewServer(apiCfg)
	api.Mount(srv.Router(), api.Options{
		Config:         apiCfg,
		App:            a,
		Logger:         log,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Run() }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case runErr = <-errc:
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	rep, closeErr := a.Close(sctx)
	log.Info().Int("flushed", rep.Snapshot).Str("to", string(rep.WrittenTo)).Msg("buffer drained")
	return errors.Join(runErr, closeErr)
}
