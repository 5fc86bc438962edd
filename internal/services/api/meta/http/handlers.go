// Package http serves liveness, readiness and build info
package http

import (
	"context"
	"net/http"
	"time"

	"retrosignal/internal/core/version"
	"retrosignal/internal/modkit/httpkit"
)

// Pinger is implemented by every store backend
type Pinger interface {
	Ping(context.Context) error
}

// Deps are the handler dependencies. A nil store is reported as skipped
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	Lite        any
	CH          any
	// Patterns returns the loaded rule count per category
	Patterns func() map[string]int
}

// HealthResponse is the /health payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Now     string `json:"now"`
}

// ReadyCheck is one store's readiness; Status is ok, fail, skipped or unknown
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse rolls the checks up to ok, degraded or fail
type ReadyResponse struct {
	Status string       `json:"status"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// ServiceResponse is the /service payload
type ServiceResponse struct {
	Name     string            `json:"name"`
	Started  string            `json:"started"`
	Uptime   int64             `json:"uptime"`
	Patterns map[string]int    `json:"patterns,omitempty"`
	Build    version.BuildInfo `json:"build"`
}

var now = time.Now

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// Register mounts /health, /ready, /version and /service on r
func Register(r httpkit.Router, d Deps) {
	httpkit.Get(r, "/health", func(*http.Request) (any, error) {
		return HealthResponse{OK: true, Service: d.ServiceName, Started: stamp(d.StartedAt), Now: stamp(now())}, nil
	})
	httpkit.Get(r, "/ready", func(r *http.Request) (any, error) { return ready(r.Context(), d), nil })
	httpkit.Get(r, "/version", func(*http.Request) (any, error) { return version.Info(), nil })
	httpkit.Get(r, "/service", func(*http.Request) (any, error) {
		out := ServiceResponse{
			Name:    d.ServiceName,
			Started: stamp(d.StartedAt),
			Uptime:  int64(now().Sub(d.StartedAt) / time.Second),
			Build:   version.Info(),
		}
		if d.Patterns != nil {
			out.Patterns = d.Patterns()
		}
		return out, nil
	})
}

func check(ctx context.Context, name string, store any) ReadyCheck {
	if store == nil {
		return ReadyCheck{Name: name, Status: "skipped"}
	}
	p, ok := store.(Pinger)
	if !ok {
		return ReadyCheck{Name: name, Status: "unknown"}
	}
	if err := p.Ping(ctx); err != nil {
		return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
	}
	return ReadyCheck{Name: name, Status: "ok"}
}

// ready pings each configured store. Bundles always accept writes, so a
// store left unconfigured does not degrade readiness
func ready(ctx context.Context, d Deps) ReadyResponse {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := ReadyResponse{Status: "ok", Now: stamp(now())}
	for _, c := range []ReadyCheck{check(ctx, "pg", d.PG), check(ctx, "sqlite", d.Lite), check(ctx, "ch", d.CH)} {
		switch {
		case c.Status == "fail":
			out.Status = "fail"
		case c.Status == "unknown" && out.Status == "ok":
			out.Status = "degraded"
		}
		out.Checks = append(out.Checks, c)
	}
	return out
}
