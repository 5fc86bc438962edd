package module

import (
	"strings"
	"time"

	"retrosignal/internal/platform/config"
	dom "retrosignal/internal/services/signals/domain"
	"retrosignal/internal/services/signals/repo"
)

// Primary names the database used as the primary backend
type Primary string

const (
	PrimaryNone       Primary = "none"
	PrimaryPostgres   Primary = "postgres"
	PrimarySQLite     Primary = "sqlite"
	PrimaryClickhouse Primary = "clickhouse"
)

// Options controls capture, batching and persistence
type Options struct {
	Threshold      int
	FlushInterval  time.Duration
	FlushBackend   dom.Backend
	Primary        Primary
	Dir            string
	AttemptTimeout time.Duration
	ContextWindow  int
	PatternsFile   string
	Table          string
}

// FromConfig reads with CORE_SIGNALS_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_SIGNALS_")
	return Options{
		Threshold:      c.MayInt("THRESHOLD", 10),
		FlushInterval:  c.MayDuration("FLUSH_INTERVAL", 30*time.Second),
		FlushBackend:   dom.Backend(strings.ToLower(c.MayEnum("FLUSH_BACKEND", "file", "file", "primary"))),
		Primary:        Primary(strings.ToLower(c.MayEnum("PRIMARY", "none", "none", "postgres", "sqlite", "clickhouse"))),
		Dir:            c.MayString("DIR", ".signals"),
		AttemptTimeout: c.MayDuration("ATTEMPT_TIMEOUT", 10*time.Second),
		ContextWindow:  c.MayInt("CONTEXT_WINDOW", 200),
		PatternsFile:   c.MayString("PATTERNS_FILE", ""),
		Table:          c.MayString("TABLE", repo.DefaultTable),
	}
}

// merge applies non-zero overrides onto o
func (o Options) merge(in Options) Options {
	if in.Threshold != 0 {
		o.Threshold = in.Threshold
	}
	if in.FlushInterval != 0 {
		o.FlushInterval = in.FlushInterval
	}
	if in.FlushBackend != "" {
		o.FlushBackend = in.FlushBackend
	}
	if in.Primary != "" {
		o.Primary = in.Primary
	}
	if in.Dir != "" {
		o.Dir = in.Dir
	}
	if in.AttemptTimeout != 0 {
		o.AttemptTimeout = in.AttemptTimeout
	}
	if in.ContextWindow != 0 {
		o.ContextWindow = in.ContextWindow
	}
	if in.PatternsFile != "" {
		o.PatternsFile = in.PatternsFile
	}
	if in.Table != "" {
		o.Table = in.Table
	}
	return o
}
