package module

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/modkit"
	"retrosignal/internal/platform/config"
	"retrosignal/internal/platform/store"
	"retrosignal/internal/platform/testkit"
	dom "retrosignal/internal/services/signals/domain"
)

func TestFromConfig_DefaultsAndEnv(t *testing.T) {
	o := FromConfig(config.New())
	if o.Threshold != 10 || o.FlushInterval != 30*time.Second || o.FlushBackend != dom.BackendFile ||
		o.Primary != PrimaryNone || o.Dir != ".signals" || o.AttemptTimeout != 10*time.Second ||
		o.ContextWindow != 200 || o.Table != "learning_signals" {
		t.Fatalf("defaults = %+v", o)
	}

	t.Setenv("CORE_SIGNALS_THRESHOLD", "3")
	t.Setenv("CORE_SIGNALS_FLUSH_BACKEND", "PRIMARY")
	t.Setenv("CORE_SIGNALS_PRIMARY", "sqlite")
	t.Setenv("CORE_SIGNALS_ATTEMPT_TIMEOUT", "250ms")
	o = FromConfig(config.New())
	if o.Threshold != 3 || o.FlushBackend != dom.BackendPrimary || o.Primary != PrimarySQLite || o.AttemptTimeout != 250*time.Millisecond {
		t.Fatalf("env = %+v", o)
	}

	t.Setenv("CORE_SIGNALS_PRIMARY", "mongo")
	testkit.MustPanic(t, func() { _ = FromConfig(config.New()) })
}

func TestMerge_OverridesWin(t *testing.T) {
	t.Parallel()

	base := Options{Threshold: 10, Dir: ".signals", Primary: PrimaryNone}
	got := base.merge(Options{Threshold: 2, Dir: "/tmp/x"})
	if got.Threshold != 2 || got.Dir != "/tmp/x" || got.Primary != PrimaryNone {
		t.Fatalf("merge = %+v", got)
	}
}

func TestNew_FileOnly(t *testing.T) {
	t.Parallel()

	m := New(modkit.Deps{}, Options{Dir: t.TempDir(), Primary: PrimaryNone})
	p := m.Ports().(Ports)
	if p.Primary != nil || p.Registry == nil || p.Detector == nil || p.Store == nil || p.Retriever == nil || p.Bundle == nil {
		t.Fatalf("ports = %+v", p)
	}
	if m.Name() != "signals" || m.Flusher().Running() {
		t.Fatalf("name=%q running=%v", m.Name(), m.Flusher().Running())
	}

	ids := p.Store.StoreMany(p.Detector.Detect("Turns out the cron job never ran.", detector.Meta{DirectiveID: "d1"}))
	if len(ids) == 0 {
		t.Fatalf("nothing captured")
	}
	rep := m.Close(context.Background())
	if rep.WrittenTo != dom.BackendFile {
		t.Fatalf("close flush = %+v", rep)
	}
	got, err := p.Retriever.ForDirective(context.Background(), "d1", dom.BackendPrimary)
	if err != nil || len(got) != len(ids) {
		t.Fatalf("retrieved %d of %d, err=%v", len(got), len(ids), err)
	}
}

func TestNew_PicksSQLitePrimary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{
		Lite: store.LiteConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "m.db")},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = st.Close(ctx) }()

	m := New(modkit.Deps{Lite: st.Lite}, Options{Dir: t.TempDir(), Primary: PrimarySQLite})
	p := m.Ports().(Ports)
	if p.Primary == nil || p.Primary.Name() != "sqlite" {
		t.Fatalf("primary = %v", p.Primary)
	}

	// selected backend without an opened store degrades to bundles only
	m = New(modkit.Deps{}, Options{Dir: t.TempDir(), Primary: PrimaryPostgres})
	if m.Ports().(Ports).Primary != nil {
		t.Fatalf("missing pg seam should leave primary nil")
	}
}
