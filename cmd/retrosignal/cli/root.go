// Package cli implements the retrosignal command line
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"retrosignal/internal/app"
	"retrosignal/internal/platform/config"
	"retrosignal/internal/platform/logger"
	sdom "retrosignal/internal/services/signals/domain"
	smod "retrosignal/internal/services/signals/module"
)

const rootLongDesc string = `Retrosignal captures learning signals from free text and folds them
into retrospectives.

Storage is configured with CORE_SIGNALS_* and SERVICE_* environment
variables; the flags below override them for one invocation.

Examples:
  echo "turns out the cache was cold" | retrosignal capture --directive d1
  retrosignal aggregate d1
  retrosignal serve`

const rootShortDesc string = "Learning signal capture and retrospective aggregation"

// rootOptions are the persistent flags shared by every subcommand
type rootOptions struct {
	dir     string
	primary string
	flushTo string
	debug   bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "retrosignal",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ro.initLogger(cmd.ErrOrStderr())
			return ro.validate()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&ro.dir, "dir", "", "Bundle directory (CORE_SIGNALS_DIR)")
	pf.StringVar(&ro.primary, "primary", "", "Primary store: none, postgres, sqlite, clickhouse (CORE_SIGNALS_PRIMARY)")
	pf.StringVar(&ro.flushTo, "flush-to", "", "Flush target: file or primary (CORE_SIGNALS_FLUSH_BACKEND)")
	pf.BoolVarP(&ro.debug, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(
		newCaptureCmd(ro),
		newCheckCmd(ro),
		newAggregateCmd(ro),
		newEnhanceCmd(ro),
		newStatsCmd(ro),
		newPatternsCmd(ro),
		newMigrateCmd(ro),
		newServeCmd(ro),
	)
	return cmd
}

// initLogger sends logs to stderr so stdout stays machine readable
func (ro *rootOptions) initLogger(w io.Writer) {
	opt := logger.FromEnv()
	opt.Writer = w
	if ro.debug {
		opt.Level = "debug"
	} else if os.Getenv("LOG_LEVEL") == "" {
		opt.Level = "warn"
	}
	logger.Init(opt)
}

func (ro *rootOptions) validate() error {
	switch smod.Primary(ro.primary) {
	case "", smod.PrimaryNone, smod.PrimaryPostgres, smod.PrimarySQLite, smod.PrimaryClickhouse:
	default:
		return fmt.Errorf("unknown --primary %q", ro.primary)
	}
	if ro.flushTo != "" && !sdom.Backend(ro.flushTo).Valid() {
		return fmt.Errorf("unknown --flush-to %q", ro.flushTo)
	}
	return nil
}

// overrides turns flags into module overrides
func (ro *rootOptions) overrides() smod.Options {
	return smod.Options{
		Dir:          ro.dir,
		Primary:      smod.Primary(ro.primary),
		FlushBackend: sdom.Backend(ro.flushTo),
	}
}

// open composes the app for one command
func (ro *rootOptions) open(cmd *cobra.Command) *app.App { return ro.openCtx(cmd.Context()) }

func (ro *rootOptions) openCtx(ctx context.Context) *app.App {
	return app.Open(ctx, app.Options{Cfg: config.New(), Signals: ro.overrides()})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
