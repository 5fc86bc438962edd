package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/core/patterns"
	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/testkit"
	dom "retrosignal/internal/services/signals/domain"
)

// fakeWriter records batches and can fail or hang
type fakeWriter struct {
	mu      sync.Mutex
	batches [][]dom.Record
	err     error
	hang    bool
	wrote   chan struct{}
}

func newFakeWriter() *fakeWriter { return &fakeWriter{wrote: make(chan struct{}, 16)} }

func (f *fakeWriter) Write(ctx context.Context, xs []dom.Record) error {
	if f.hang {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.batches = append(f.batches, append([]dom.Record(nil), xs...))
	f.mu.Unlock()
	f.wrote <- struct{}{}
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func sig(cat patterns.Category, pos int, ctxText string) detector.Signal {
	return detector.Signal{
		Category:    cat,
		Pattern:     `\bfixed\b`,
		MatchedText: "fixed",
		Position:    pos,
		Context:     ctxText,
		Weight:      0.7,
		Timestamp:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		SessionID:   "s1",
		DirectiveID: "dir-1",
		Metadata:    map[string]any{"text_length": 30},
	}
}

func TestStore_AssignsIDsAndStamps(t *testing.T) {
	testkit.Serial(t)

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testkit.Swap(t, &now, func() time.Time { return fixed })
	testkit.Swap(t, &idSuffix, func() string { return "abcdef01" })

	b := NewBuffer(Config{Threshold: 100}, nil, newFakeWriter())
	id := b.Store(sig(patterns.Resolution, 4, "it is fixed\x00 now"))

	want := "resolution_1740830400000_abcdef01"
	if id != want {
		t.Fatalf("id = %q, want %q", id, want)
	}
	if b.Pending() != 1 {
		t.Fatalf("pending = %d", b.Pending())
	}
	rec := b.pending[0]
	if !rec.StoredAt.Equal(fixed) || !rec.Timestamp.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("stamps stored=%v ts=%v", rec.StoredAt, rec.Timestamp)
	}
	if strings.ContainsRune(rec.Context, 0) {
		t.Fatalf("context not sanitized: %q", rec.Context)
	}
	if ids := b.StoreMany(nil); ids != nil {
		t.Fatalf("empty StoreMany = %v", ids)
	}
}

func TestFlush_EmptyIsOK(t *testing.T) {
	t.Parallel()

	b := NewBuffer(Config{}, nil, newFakeWriter())
	rep := b.Flush(context.Background(), dom.BackendPrimary)
	if !rep.OK() || rep.Snapshot != 0 || len(rep.Attempts) != 0 {
		t.Fatalf("empty flush = %+v", rep)
	}
}

func TestFlush_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	prim, file := newFakeWriter(), newFakeWriter()
	b := NewBuffer(Config{Threshold: 100}, prim, file)
	b.StoreMany([]detector.Signal{sig(patterns.Resolution, 0, "a"), sig(patterns.Causal, 9, "b")})

	rep := b.Flush(context.Background(), dom.BackendPrimary)
	if rep.WrittenTo != dom.BackendPrimary || len(rep.Attempts) != 1 || rep.Snapshot != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if prim.count() != 2 || file.count() != 0 || b.Pending() != 0 {
		t.Fatalf("primary=%d file=%d pending=%d", prim.count(), file.count(), b.Pending())
	}
}

// primary always failing: the batch lands in the file backend and nothing is lost
func TestFlush_FallsBackToFile(t *testing.T) {
	t.Parallel()

	prim, file := newFakeWriter(), newFakeWriter()
	prim.err = perr.Unavailablef("relation does not exist")
	b := NewBuffer(Config{Threshold: 100}, prim, file)
	b.StoreMany([]detector.Signal{sig(patterns.Resolution, 0, "a"), sig(patterns.Causal, 9, "b"), sig(patterns.Hindsight, 20, "c")})

	rep := b.Flush(context.Background(), dom.BackendPrimary)
	if rep.WrittenTo != dom.BackendFile || !rep.OK() {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.Attempts) != 2 || rep.Attempts[0].OK() || !rep.Attempts[1].OK() {
		t.Fatalf("attempts = %+v", rep.Attempts)
	}
	if rep.Attempts[0].Error == "" || rep.Attempts[0].Backend != dom.BackendPrimary {
		t.Fatalf("first attempt = %+v", rep.Attempts[0])
	}
	if file.count() != 3 || b.Pending() != 0 {
		t.Fatalf("file=%d pending=%d", file.count(), b.Pending())
	}
}

func TestFlush_NoPrimaryConfigured(t *testing.T) {
	t.Parallel()

	file := newFakeWriter()
	b := NewBuffer(Config{Threshold: 100}, nil, file)
	b.Store(sig(patterns.Discovery, 0, "a"))

	rep := b.Flush(context.Background(), dom.BackendPrimary)
	if rep.WrittenTo != dom.BackendFile || len(rep.Attempts) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if !perr.IsCode(rep.Attempts[0].Err, perr.ErrorCodeUnavailable) {
		t.Fatalf("missing primary err = %v", rep.Attempts[0].Err)
	}
}

func TestFlush_FileOnlyPlan(t *testing.T) {
	t.Parallel()

	prim, file := newFakeWriter(), newFakeWriter()
	b := NewBuffer(Config{Threshold: 100}, prim, file)
	b.Store(sig(patterns.Discovery, 0, "a"))

	rep := b.Flush(context.Background(), dom.BackendFile)
	if len(rep.Attempts) != 1 || rep.WrittenTo != dom.BackendFile || prim.count() != 0 {
		t.Fatalf("report = %+v primary=%d", rep, prim.count())
	}
}

func TestFlush_AllFailRequeuesAtFront(t *testing.T) {
	t.Parallel()

	prim, file := newFakeWriter(), newFakeWriter()
	prim.err = errors.New("down")
	file.err = errors.New("disk full")
	b := NewBuffer(Config{Threshold: 100}, prim, file)
	first := b.StoreMany([]detector.Signal{sig(patterns.Discovery, 0, "a"), sig(patterns.Causal, 5, "b")})

	rep := b.Flush(context.Background(), dom.BackendPrimary)
	if rep.OK() || rep.Requeued != 2 || len(rep.Attempts) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	later := b.Store(sig(patterns.Recurrence, 9, "c"))
	if b.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", b.Pending())
	}
	if b.pending[0].ID != first[0] || b.pending[1].ID != first[1] || b.pending[2].ID != later {
		t.Fatalf("requeued batch must stay at the front")
	}

	// recovery: the retried batch is delivered
	file.err = nil
	rep = b.Flush(context.Background(), dom.BackendFile)
	if !rep.OK() || file.count() != 3 {
		t.Fatalf("retry report = %+v file=%d", rep, file.count())
	}
}

func TestFlush_AttemptTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	prim, file := newFakeWriter(), newFakeWriter()
	prim.hang = true
	b := NewBuffer(Config{Threshold: 100, AttemptTimeout: 20 * time.Millisecond}, prim, file)
	b.Store(sig(patterns.Discovery, 0, "a"))

	rep := b.Flush(context.Background(), dom.BackendPrimary)
	if rep.WrittenTo != dom.BackendFile {
		t.Fatalf("report = %+v", rep)
	}
	if !perr.IsCode(rep.Attempts[0].Err, perr.ErrorCodeTimeout) {
		t.Fatalf("timeout code = %v (%v)", perr.CodeOf(rep.Attempts[0].Err), rep.Attempts[0].Err)
	}
}

func TestStore_ThresholdTriggersDetachedFlush(t *testing.T) {
	t.Parallel()

	file := newFakeWriter()
	b := NewBuffer(Config{Threshold: 3}, nil, file)
	b.StoreMany([]detector.Signal{sig(patterns.Discovery, 0, "a"), sig(patterns.Causal, 5, "b")})
	if b.Pending() != 2 {
		t.Fatalf("below threshold should not flush")
	}
	b.Store(sig(patterns.Hindsight, 9, "c"))

	select {
	case <-file.wrote:
	case <-time.After(2 * time.Second):
		t.Fatalf("threshold flush never wrote")
	}
	b.wg.Wait()
	if file.count() != 3 || b.Pending() != 0 {
		t.Fatalf("file=%d pending=%d", file.count(), b.Pending())
	}
}

func TestClose_DrainsRemaining(t *testing.T) {
	t.Parallel()

	file := newFakeWriter()
	b := NewBuffer(Config{Threshold: 100}, nil, file)
	b.Store(sig(patterns.Discovery, 0, "a"))

	rep := b.Close(context.Background())
	if !rep.OK() || file.count() != 1 || b.Pending() != 0 {
		t.Fatalf("close report = %+v file=%d", rep, file.count())
	}
	testkit.MustPanic(t, func() { _ = NewBuffer(Config{}, nil, nil) })
}

func TestPlan(t *testing.T) {
	t.Parallel()

	if p := plan(dom.BackendPrimary); len(p) != 2 || p[0] != dom.BackendPrimary || p[1] != dom.BackendFile {
		t.Fatalf("primary plan = %v", p)
	}
	if p := plan(dom.BackendFile); len(p) != 1 || p[0] != dom.BackendFile {
		t.Fatalf("file plan = %v", p)
	}
}
