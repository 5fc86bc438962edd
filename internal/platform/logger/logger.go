// Package logger holds the process root zerolog logger and request-scoped children
package logger

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the logging type handed around the codebase
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level      string
	Format     string // console or json
	Service    string
	Writer     io.Writer
	WithCaller bool
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_SERVICE and LOG_CALLER.
// config depends on this package, so the environment is read directly
func FromEnv() Options {
	caller, _ := strconv.ParseBool(env("LOG_CALLER", "false"))
	return Options{
		Level:      env("LOG_LEVEL", "debug"),
		Format:     env("LOG_FORMAT", "console"),
		Service:    env("LOG_SERVICE", ""),
		WithCaller: caller,
	}
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.ToLower(v)
	}
	return def
}

var root atomic.Pointer[Logger]

// Init replaces the root logger
func Init(opt Options) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(opt.Level)
	if err != nil || opt.Level == "" {
		lvl = zerolog.DebugLevel
	}
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(lvl).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	if opt.WithCaller {
		ctx = ctx.Caller()
	}
	log := ctx.Logger()
	root.Store(&log)
}

// Get returns the root logger, built from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Named returns a child tagged with component
func Named(component string) *Logger {
	l := Get().With().Str("component", component).Logger()
	return &l
}

type ctxKey uint8

const (
	keyRequestID ctxKey = iota
	keyDirective
)

// WithRequest stores the request and directive ids logged by C; blanks are skipped
func WithRequest(ctx context.Context, reqID, directiveID string) context.Context {
	if reqID != "" {
		ctx = context.WithValue(ctx, keyRequestID, reqID)
	}
	if directiveID != "" {
		ctx = context.WithValue(ctx, keyDirective, directiveID)
	}
	return ctx
}

// C returns a child carrying the ids stored by WithRequest
func C(ctx context.Context) *Logger {
	b := Get().With()
	if s, _ := ctx.Value(keyRequestID).(string); s != "" {
		b = b.Str("request_id", s)
	}
	if s, _ := ctx.Value(keyDirective).(string); s != "" {
		b = b.Str("directive_id", s)
	}
	l := b.Logger()
	return &l
}
