package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/core/patterns"
	phttp "retrosignal/internal/platform/net/http"
	mdom "retrosignal/internal/services/moments/domain"
	rdom "retrosignal/internal/services/retro/domain"
	sdom "retrosignal/internal/services/signals/domain"
)

type fakeFacade struct {
	meta     detector.Meta
	opts     *rdom.Options
	directed string
	flush    sdom.FlushReport
}

func (f *fakeFacade) CaptureSignals(_ context.Context, text string, meta detector.Meta) mdom.CaptureResult {
	f.meta = meta
	if text == "" {
		return mdom.CaptureResult{SignalIDs: []string{}, Categories: []patterns.Category{}}
	}
	return mdom.CaptureResult{Captured: true, Count: 1, SignalIDs: []string{"discovery_1_x"}, Categories: []patterns.Category{patterns.Discovery}}
}

func (f *fakeFacade) HasLearningMoments(text string) bool { return strings.Contains(text, "turns out") }

func (f *fakeFacade) GetAggregatedSignals(_ context.Context, id string, opts *rdom.Options) rdom.Result {
	f.directed, f.opts = id, opts
	return rdom.Empty()
}

func (f *fakeFacade) EnhanceRetrospective(_ context.Context, retro rdom.Retrospective, id string) rdom.Retrospective {
	f.directed = id
	out := rdom.Retrospective{"signal_metadata": map[string]any{"hasSignals": false}}
	for k, v := range retro {
		out[k] = v
	}
	return out
}

func (f *fakeFacade) GetStats(_ context.Context, id string) rdom.StatsResult {
	f.directed = id
	return rdom.StatsResult{Total: 2, ByCategory: map[patterns.Category]int{patterns.Causal: 2}}
}

func (f *fakeFacade) Flush(context.Context) sdom.FlushReport { return f.flush }

func (f *fakeFacade) Patterns() []mdom.PatternInfo {
	return []mdom.PatternInfo{{Category: patterns.Discovery, Weight: 0.8}}
}

func serve(t *testing.T, f *fakeFacade, method, path, body string) (*httptest.ResponseRecorder, phttp.Envelope) {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), f, rdom.DefaultOptions())

	var req *stdhttp.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestCapture(t *testing.T) {
	t.Parallel()

	f := &fakeFacade{}
	rec, env := serve(t, f, stdhttp.MethodPost, "/signals/capture", `{"text":"turns out x","session_id":"s1","directive_id":"d1"}`)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if f.meta.SessionID != "s1" || f.meta.DirectiveID != "d1" {
		t.Fatalf("meta = %+v", f.meta)
	}
	data := env.Data.(map[string]any)
	if data["captured"] != true || data["count"] != float64(1) {
		t.Fatalf("data = %v", data)
	}
}

func TestCapture_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	rec, _ := serve(t, &fakeFacade{}, stdhttp.MethodPost, "/signals/capture", `{"text":"x","nope":1}`)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	_, env := serve(t, &fakeFacade{}, stdhttp.MethodPost, "/signals/check", `{"text":"turns out it was dns"}`)
	if env.Data.(map[string]any)["hasLearningMoments"] != true {
		t.Fatalf("data = %v", env.Data)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	ok := &fakeFacade{flush: sdom.FlushReport{Requested: sdom.BackendFile, Snapshot: 2, WrittenTo: sdom.BackendFile}}
	if rec, _ := serve(t, ok, stdhttp.MethodPost, "/signals/flush", ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	failed := &fakeFacade{flush: sdom.FlushReport{Requested: sdom.BackendFile, Snapshot: 2, Requeued: 2}}
	rec, env := serve(t, failed, stdhttp.MethodPost, "/signals/flush", "")
	if rec.Code != stdhttp.StatusServiceUnavailable || !strings.Contains(env.Error, "2 signals requeued") {
		t.Fatalf("status = %d env=%+v", rec.Code, env)
	}
}

func TestPatterns(t *testing.T) {
	t.Parallel()

	_, env := serve(t, &fakeFacade{}, stdhttp.MethodGet, "/signals/patterns", "")
	if list, ok := env.Data.([]any); !ok || len(list) != 1 {
		t.Fatalf("data = %v", env.Data)
	}
}

func TestAggregate_QueryOverrides(t *testing.T) {
	t.Parallel()

	f := &fakeFacade{}
	rec, _ := serve(t, f, stdhttp.MethodGet, "/directives/d9/aggregate?min_weight=0.8&deduplicate=false", "")
	if rec.Code != stdhttp.StatusOK || f.directed != "d9" {
		t.Fatalf("status=%d id=%q", rec.Code, f.directed)
	}
	if f.opts == nil || f.opts.MinWeight != 0.8 || f.opts.Deduplicate {
		t.Fatalf("opts = %+v", f.opts)
	}

	f = &fakeFacade{}
	_, _ = serve(t, f, stdhttp.MethodGet, "/directives/d9/aggregate", "")
	if *f.opts != rdom.DefaultOptions() {
		t.Fatalf("defaults not applied: %+v", f.opts)
	}

	for _, q := range []string{"min_weight=2", "min_weight=abc", "deduplicate=maybe"} {
		if rec, _ := serve(t, &fakeFacade{}, stdhttp.MethodGet, "/directives/d9/aggregate?"+q, ""); rec.Code != stdhttp.StatusBadRequest {
			t.Fatalf("%s: status = %d", q, rec.Code)
		}
	}
}

func TestEnhance(t *testing.T) {
	t.Parallel()

	f := &fakeFacade{}
	_, env := serve(t, f, stdhttp.MethodPost, "/directives/d2/enhance", `{"retrospective":{"title":"sprint 9"}}`)
	data := env.Data.(map[string]any)
	if f.directed != "d2" || data["title"] != "sprint 9" || data["signal_metadata"] == nil {
		t.Fatalf("data = %v", data)
	}

	if rec, _ := serve(t, f, stdhttp.MethodPost, "/directives/d2/enhance", `{}`); rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("missing retrospective status = %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	f := &fakeFacade{}
	_, env := serve(t, f, stdhttp.MethodGet, "/directives/d3/stats", "")
	if f.directed != "d3" || env.Data.(map[string]any)["total"] != float64(2) {
		t.Fatalf("data = %v", env.Data)
	}
}
