// Package service aggregates captured signals into retrospective content and merges it into caller records
package service

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"retrosignal/internal/core/normalize"
	"retrosignal/internal/core/patterns"
	"retrosignal/internal/platform/logger"
	dom "retrosignal/internal/services/retro/domain"
	sdom "retrosignal/internal/services/signals/domain"
)

const (
	// insight length cap in runes
	insightMax = 200

	noContext     = "(no context captured)"
	causalImpact  = "Captured causal insight from session"
	sourceSignals = "captured_signals"
)

var now = time.Now

// Config controls where records are read from
type Config struct {
	// From is the backend the retriever reads first (default primary, with bundle fallback)
	From sdom.Backend
}

// Aggregator turns persisted records into retrospective content
type Aggregator struct {
	src   dom.Source
	order []patterns.Category
	cfg   Config
	log   *logger.Logger
}

// New constructs an aggregator. Groups follow the registry order
func New(src dom.Source, reg *patterns.Registry, cfg Config) *Aggregator {
	if src == nil || reg == nil {
		panic("retro: nil source or registry")
	}
	if !cfg.From.Valid() {
		cfg.From = sdom.BackendPrimary
	}
	return &Aggregator{src: src, order: reg.Categories(), cfg: cfg, log: logger.Named("retro")}
}

var _ dom.AggregatorPort = (*Aggregator)(nil)

// Aggregate retrieves, filters, deduplicates, groups and transforms the records of a directive.
// Retrieval failures degrade to the empty result
func (a *Aggregator) Aggregate(ctx context.Context, directiveID string, opts dom.Options) dom.Result {
	recs, err := a.src.ForDirective(ctx, directiveID, a.cfg.From)
	if err != nil {
		a.log.Warn().Err(err).Str("directive_id", directiveID).Msg("retrieve failed")
		return dom.Empty()
	}
	if len(recs) == 0 {
		return dom.Empty()
	}

	kept := filterWeight(recs, opts.MinWeight)
	filtered := len(kept)
	if opts.Deduplicate {
		kept = dedupContext(kept)
	}

	groups := map[patterns.Category][]sdom.Record{}
	for _, r := range kept {
		groups[r.Category] = append(groups[r.Category], r)
	}

	res := dom.Empty()
	var present []patterns.Category
	for _, cat := range a.order {
		g := groups[cat]
		if len(g) == 0 {
			continue
		}
		present = append(present, cat)
		for _, r := range g {
			f, it, ok := transform(r)
			if !ok {
				continue
			}
			res.Content[f] = append(res.Content[f], it)
			res.FieldCounts[f]++
			res.SignalCount++
		}
	}
	for cat, g := range groups {
		if !cat.Valid() {
			a.log.Warn().Str("category", string(cat)).Int("records", len(g)).Msg("unknown category skipped")
		}
	}

	res.HasSignals = res.SignalCount > 0
	res.Metadata = &dom.Metadata{
		AggregatedAt:      now().UTC(),
		Source:            sourceSignals,
		OriginalCount:     len(recs),
		FilteredCount:     filtered,
		DeduplicatedCount: len(kept),
		Categories:        present,
	}
	if res.HasSignals {
		res.AuthenticityScore = Score(len(present), res.SignalCount)
	}
	return res
}

func filterWeight(xs []sdom.Record, floor float64) []sdom.Record {
	out := make([]sdom.Record, 0, len(xs))
	for _, r := range xs {
		if r.Weight >= floor {
			out = append(out, r)
		}
	}
	return out
}

// dedupContext keeps the first record per normalized context
func dedupContext(xs []sdom.Record) []sdom.Record {
	seen := make(map[string]struct{}, len(xs))
	out := xs[:0:0]
	for _, r := range xs {
		k := normalize.ContextKey(r.Context)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// transform maps a record to its retrospective field and item.
// ok is false for a category this build does not know
func transform(r sdom.Record) (dom.Field, dom.Item, bool) {
	in := Insight(r.Context)
	switch r.Category {
	case patterns.Discovery:
		return dom.KeyLearnings, dom.Line("Found: " + r.MatchedText + " - " + in), true
	case patterns.Resolution:
		return dom.WhatWentWell, dom.Line("Resolved: " + in), true
	case patterns.Causal:
		return dom.ProtocolImprovements, dom.Improvement{
			Category:    "WORKFLOW",
			Improvement: in,
			Evidence:    r.Context,
			Impact:      causalImpact,
		}, true
	case patterns.Hindsight:
		return dom.WhatNeedsImprovement, dom.Line("Lesson: " + in), true
	case patterns.Recurrence:
		return dom.ActionItems, dom.ActionItem{
			Text:     "Address recurring pattern: " + in,
			Category: "PROCESS_IMPROVEMENT",
		}, true
	}
	return "", nil, false
}

// Insight is the context with ellipsis markers stripped, trimmed and capped at 200 runes
func Insight(ctx string) string {
	s := strings.TrimSpace(ctx)
	s = strings.TrimPrefix(s, "...")
	s = strings.TrimSuffix(s, "...")
	s = strings.TrimSpace(s)
	if s == "" {
		return noContext
	}
	if utf8.RuneCountInString(s) > insightMax {
		s = string([]rune(s)[:insightMax]) + "..."
	}
	return s
}

// Score is the authenticity heuristic, rounded to the nearest integer and capped at 100
func Score(categories, signals int) int {
	if signals < 0 {
		signals = 0
	}
	v := 50 +
		math.Min(30, 10*float64(categories)) +
		math.Min(20, 5*math.Log2(float64(signals)+1))
	return int(math.Round(math.Min(100, v)))
}
