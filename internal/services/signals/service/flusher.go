package service

import (
	"context"
	"sync"
	"time"

	"retrosignal/internal/platform/logger"
	dom "retrosignal/internal/services/signals/domain"
)

// flushSource is the part of the buffer the flusher drives
type flushSource interface {
	Pending() int
	Flush(ctx context.Context, to dom.Backend) dom.FlushReport
}

// Flusher flushes a buffer on a fixed interval. It is never started implicitly
type Flusher struct {
	src   flushSource
	every time.Duration
	to    dom.Backend
	log   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFlusher constructs a stopped flusher (interval default 30s)
func NewFlusher(src flushSource, every time.Duration, to dom.Backend) *Flusher {
	if every <= 0 {
		every = 30 * time.Second
	}
	if !to.Valid() {
		to = dom.BackendFile
	}
	return &Flusher{src: src, every: every, to: to, log: logger.Named("signals-flusher")}
}

// Start runs the loop until ctx ends or Stop is called. A running loop is replaced
func (f *Flusher) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel, f.done = cancel, done
	go f.run(cctx, done)
}

// Stop cancels the loop and waits for it to exit
func (f *Flusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
}

// Running reports whether a loop is active
func (f *Flusher) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil {
		return false
	}
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

func (f *Flusher) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel, f.done = nil, nil
}

func (f *Flusher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(f.every)
	defer t.Stop()

	f.log.Debug().Dur("every", f.every).Str("backend", string(f.to)).Msg("flusher started")
	for {
		select {
		case <-ctx.Done():
			f.log.Debug().Msg("flusher stopped")
			return
		case <-t.C:
			if f.src.Pending() == 0 {
				continue
			}
			rep := f.src.Flush(ctx, f.to)
			if !rep.OK() {
				f.log.Warn().Int("requeued", rep.Requeued).Msg("periodic flush failed")
			}
		}
	}
}
