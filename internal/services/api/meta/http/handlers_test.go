package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	phttp "retrosignal/internal/platform/net/http"
	"retrosignal/internal/platform/testkit"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func get(t *testing.T, d Deps, path string) map[string]any {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), d)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, path, nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("%s status = %d", path, rec.Code)
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func TestReady(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		deps Deps
		want string
	}{
		{"bundles only", Deps{}, "ok"},
		{"sqlite up", Deps{Lite: pinger{}}, "ok"},
		{"pg down", Deps{PG: pinger{err: errors.New("refused")}, Lite: pinger{}}, "fail"},
		{"no ping", Deps{CH: struct{}{}}, "degraded"},
	}
	for _, c := range cases {
		if got := get(t, c.deps, "/ready")["status"]; got != c.want {
			t.Fatalf("%s: status = %v, want %s", c.name, got, c.want)
		}
	}
}

func TestHealthAndService(t *testing.T) {
	testkit.Serial(t)
	at := time.Date(2026, 10, 1, 13, 0, 0, 0, time.UTC)
	testkit.Swap(t, &now, func() time.Time { return at.Add(5 * time.Minute) })

	d := Deps{
		ServiceName: "retrosignal-api",
		StartedAt:   at,
		Patterns:    func() map[string]int { return map[string]int{"discovery": 5} },
	}
	h := get(t, d, "/health")
	if h["ok"] != true || h["now"] != "2026-10-01T13:05:00Z" {
		t.Fatalf("health = %v", h)
	}
	s := get(t, d, "/service")
	if s["uptime"] != float64(300) || s["patterns"].(map[string]any)["discovery"] != float64(5) {
		t.Fatalf("service = %v", s)
	}
	if v := get(t, d, "/version"); v["service"] != "retrosignal" {
		t.Fatalf("version = %v", v)
	}
}
