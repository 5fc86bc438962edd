// Package service implements the signals buffer, its periodic flusher and the retriever
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/core/normalize"
	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/logger"
	dom "retrosignal/internal/services/signals/domain"

	"github.com/google/uuid"
)

var (
	now       = time.Now
	idSuffix  = func() string { return uuid.NewString()[:8] }
	errNoPrim = perr.New(perr.ErrorCodeUnavailable, "no primary backend configured")
)

// Config controls batching and flush attempts
type Config struct {
	// Threshold is the pending count that triggers a detached flush (default 10)
	Threshold int
	// Default is the backend detached and periodic flushes target (default file)
	Default dom.Backend
	// AttemptTimeout bounds one backend write (default 10s)
	AttemptTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = 10
	}
	if !c.Default.Valid() {
		c.Default = dom.BackendFile
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 10 * time.Second
	}
	return c
}

// Buffer holds captured records in memory and persists them in batches.
// Store never blocks on I/O
type Buffer struct {
	cfg     Config
	primary dom.Writer
	file    dom.Writer
	log     *logger.Logger

	mu      sync.Mutex
	pending []dom.Record

	flushing atomic.Bool
	wg       sync.WaitGroup
}

// NewBuffer constructs a buffer. primary may be nil; file is required
func NewBuffer(cfg Config, primary, file dom.Writer) *Buffer {
	if file == nil {
		panic("signals buffer: nil file backend")
	}
	return &Buffer{
		cfg:     cfg.withDefaults(),
		primary: primary,
		file:    file,
		log:     logger.Named("signals-buffer"),
	}
}

var _ dom.StorePort = (*Buffer)(nil)

// Store buffers one signal and returns its record id
func (b *Buffer) Store(sig detector.Signal) string {
	return b.StoreMany([]detector.Signal{sig})[0]
}

// StoreMany buffers signals in order and returns their ids
func (b *Buffer) StoreMany(sigs []detector.Signal) []string {
	if len(sigs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sigs))
	recs := make([]dom.Record, 0, len(sigs))
	for _, s := range sigs {
		r := toRecord(s)
		ids = append(ids, r.ID)
		recs = append(recs, r)
	}

	b.mu.Lock()
	b.pending = append(b.pending, recs...)
	full := len(b.pending) >= b.cfg.Threshold
	b.mu.Unlock()

	if full && b.flushing.CompareAndSwap(false, true) {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer b.flushing.Store(false)
			rep := b.Flush(context.Background(), b.cfg.Default)
			if !rep.OK() {
				b.log.Warn().Int("requeued", rep.Requeued).Msg("threshold flush failed")
			}
		}()
	}
	return ids
}

func toRecord(s detector.Signal) dom.Record {
	t := now().UTC()
	ts := s.Timestamp
	if ts.IsZero() {
		ts = t
	}
	return dom.Record{
		ID:          fmt.Sprintf("%s_%d_%s", s.Category, t.UnixMilli(), idSuffix()),
		Category:    s.Category,
		Pattern:     s.Pattern,
		MatchedText: normalize.Sanitize(s.MatchedText),
		Position:    s.Position,
		Context:     normalize.Sanitize(s.Context),
		Weight:      s.Weight,
		Timestamp:   ts.UTC(),
		SessionID:   s.SessionID,
		DirectiveID: s.DirectiveID,
		Metadata:    s.Metadata,
		StoredAt:    t,
	}
}

// Pending returns the number of buffered records
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush snapshots and clears the pending batch, then walks the attempt plan for to.
// When every attempt fails the snapshot goes back to the front of the batch
func (b *Buffer) Flush(ctx context.Context, to dom.Backend) dom.FlushReport {
	if !to.Valid() {
		to = b.cfg.Default
	}
	rep := dom.FlushReport{Requested: to}

	b.mu.Lock()
	snap := b.pending
	b.pending = nil
	b.mu.Unlock()

	rep.Snapshot = len(snap)
	if len(snap) == 0 {
		return rep
	}

	for _, be := range plan(to) {
		a := b.attempt(ctx, be, snap)
		rep.Attempts = append(rep.Attempts, a)
		if a.OK() {
			rep.WrittenTo = be
			b.log.Debug().Str("backend", string(be)).Int("count", a.Count).Int64("elapsed_ms", a.ElapsedMs).Msg("flushed")
			return rep
		}
		b.log.Warn().Err(a.Err).Str("backend", string(be)).Int("count", a.Count).Msg("flush attempt failed")
	}

	b.mu.Lock()
	b.pending = append(snap, b.pending...)
	b.mu.Unlock()
	rep.Requeued = len(snap)
	b.log.Error().Int("requeued", rep.Requeued).Msg("all flush attempts failed")
	return rep
}

// plan is the ordered list of backends tried for a requested target
func plan(to dom.Backend) []dom.Backend {
	if to == dom.BackendPrimary {
		return []dom.Backend{dom.BackendPrimary, dom.BackendFile}
	}
	return []dom.Backend{dom.BackendFile}
}

// attempt writes xs to one backend under the attempt timeout
func (b *Buffer) attempt(ctx context.Context, be dom.Backend, xs []dom.Record) dom.Attempt {
	a := dom.Attempt{Backend: be, Count: len(xs)}
	start := time.Now()

	w := b.file
	if be == dom.BackendPrimary {
		w = b.primary
	}
	if w == nil {
		a.Err, a.Error = errNoPrim, errNoPrim.Error()
		a.ElapsedMs = time.Since(start).Milliseconds()
		return a
	}

	actx, cancel := context.WithTimeout(ctx, b.cfg.AttemptTimeout)
	defer cancel()

	// a writer that ignores ctx must not hold the plan past the deadline
	done := make(chan error, 1)
	go func() { done <- w.Write(actx, xs) }()

	var err error
	select {
	case err = <-done:
	case <-actx.Done():
		err = perr.FromContext(actx.Err(), fmt.Sprintf("write to %s", be))
	}
	if err != nil {
		a.Err, a.Error = err, err.Error()
	}
	a.ElapsedMs = time.Since(start).Milliseconds()
	return a
}

// Close waits for detached flushes and flushes what remains to the default backend
func (b *Buffer) Close(ctx context.Context) dom.FlushReport {
	b.wg.Wait()
	return b.Flush(ctx, b.cfg.Default)
}
