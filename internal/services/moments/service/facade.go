// Package service implements the learning moments facade over capture, aggregation and merge
package service

import (
	"context"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/core/patterns"
	"retrosignal/internal/platform/logger"
	dom "retrosignal/internal/services/moments/domain"
	rdom "retrosignal/internal/services/retro/domain"
	rsvc "retrosignal/internal/services/retro/service"
	sdom "retrosignal/internal/services/signals/domain"
)

// Deps are the collaborators the facade drives
type Deps struct {
	Registry   *patterns.Registry
	Detector   *detector.Detector
	Store      sdom.StorePort
	Aggregator rdom.AggregatorPort
	// Defaults apply when a caller passes no aggregation options
	Defaults rdom.Options
	// FlushTo is the backend a forced flush targets
	FlushTo sdom.Backend
}

// Facade implements dom.FacadePort
type Facade struct {
	d Deps
}

// New constructs the facade
func New(d Deps) *Facade {
	if d.Registry == nil || d.Detector == nil || d.Store == nil || d.Aggregator == nil {
		panic("moments facade: missing dependency")
	}
	if !d.FlushTo.Valid() {
		d.FlushTo = sdom.BackendFile
	}
	return &Facade{d: d}
}

var _ dom.FacadePort = (*Facade)(nil)

// CaptureSignals detects and buffers; it returns before anything is persisted
func (f *Facade) CaptureSignals(ctx context.Context, text string, meta detector.Meta) dom.CaptureResult {
	out := dom.CaptureResult{SignalIDs: []string{}, Categories: []patterns.Category{}}

	sigs := f.d.Detector.Detect(text, meta)
	if len(sigs) == 0 {
		return out
	}
	ids := f.d.Store.StoreMany(sigs)

	seen := map[patterns.Category]bool{}
	for _, s := range sigs {
		if !seen[s.Category] {
			seen[s.Category] = true
			out.Categories = append(out.Categories, s.Category)
		}
	}
	out.Captured = true
	out.Count = len(ids)
	out.SignalIDs = ids

	logger.C(ctx).Debug().
		Str("component", "moments").
		Int("count", out.Count).
		Str("session_id", meta.SessionID).
		Str("directive_id", meta.DirectiveID).
		Msg("signals captured")
	return out
}

// HasLearningMoments is the cheap existence check
func (f *Facade) HasLearningMoments(text string) bool {
	return f.d.Detector.HasSignals(text)
}

// GetAggregatedSignals aggregates with opts, or the configured defaults when opts is nil
func (f *Facade) GetAggregatedSignals(ctx context.Context, directiveID string, opts *rdom.Options) rdom.Result {
	o := f.d.Defaults
	if opts != nil {
		o = *opts
	}
	return f.d.Aggregator.Aggregate(ctx, directiveID, o)
}

// EnhanceRetrospective aggregates with the defaults and merges into retro
func (f *Facade) EnhanceRetrospective(ctx context.Context, retro rdom.Retrospective, directiveID string) rdom.Retrospective {
	res := f.d.Aggregator.Aggregate(ctx, directiveID, f.d.Defaults)
	logger.C(ctx).Debug().
		Str("component", "moments").
		Bool("has_signals", res.HasSignals).
		Int("signal_count", res.SignalCount).
		Msg("retrospective enhanced")
	return rsvc.Merge(retro, res)
}

// GetStats summarizes every record of a directive
func (f *Facade) GetStats(ctx context.Context, directiveID string) rdom.StatsResult {
	return f.d.Aggregator.Stats(ctx, directiveID)
}

// Flush forces the pending batch out to the configured backend
func (f *Facade) Flush(ctx context.Context) sdom.FlushReport {
	return f.d.Store.Flush(ctx, f.d.FlushTo)
}

// Patterns lists the registry in order
func (f *Facade) Patterns() []dom.PatternInfo {
	snap := f.d.Registry.Snapshot()
	out := make([]dom.PatternInfo, 0, len(snap))
	for _, c := range snap {
		exprs := make([]string, 0, len(c.Rules))
		for _, r := range c.Rules {
			exprs = append(exprs, r.Expr)
		}
		out = append(out, dom.PatternInfo{
			Category:    c.Name,
			Weight:      c.Weight,
			Description: c.Description,
			Patterns:    exprs,
		})
	}
	return out
}
