// Package domain defines the facade surface consumed by the API and CLI
package domain

import (
	"context"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/core/patterns"
	rdom "retrosignal/internal/services/retro/domain"
	sdom "retrosignal/internal/services/signals/domain"
)

// CaptureResult reports what one capture buffered
type CaptureResult struct {
	Captured   bool                `json:"captured"`
	Count      int                 `json:"count"`
	SignalIDs  []string            `json:"signalIds"`
	Categories []patterns.Category `json:"categories"`
}

// PatternInfo describes one registry category
type PatternInfo struct {
	Category    patterns.Category `json:"category"`
	Weight      float64           `json:"weight"`
	Description string            `json:"description"`
	Patterns    []string          `json:"patterns"`
}

// FacadePort is the learning moments surface. No operation returns an error;
// failures are logged and degrade to empty results
type FacadePort interface {
	CaptureSignals(ctx context.Context, text string, meta detector.Meta) CaptureResult
	HasLearningMoments(text string) bool
	GetAggregatedSignals(ctx context.Context, directiveID string, opts *rdom.Options) rdom.Result
	EnhanceRetrospective(ctx context.Context, retro rdom.Retrospective, directiveID string) rdom.Retrospective
	GetStats(ctx context.Context, directiveID string) rdom.StatsResult
	Flush(ctx context.Context) sdom.FlushReport
	Patterns() []PatternInfo
}
