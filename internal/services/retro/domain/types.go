// Package domain defines the aggregation result, retrospective and stats types
package domain

import (
	"context"
	"time"

	"retrosignal/internal/core/patterns"
	sdom "retrosignal/internal/services/signals/domain"
)

// Field is a list field of the retrospective record
type Field string

const (
	KeyLearnings         Field = "key_learnings"
	WhatWentWell         Field = "what_went_well"
	ProtocolImprovements Field = "protocol_improvements"
	WhatNeedsImprovement Field = "what_needs_improvement"
	ActionItems          Field = "action_items"
)

// Options tunes aggregation
type Options struct {
	Deduplicate bool    `json:"deduplicate"`
	MinWeight   float64 `json:"minWeight" validate:"gte=0,lte=1"`
}

// DefaultOptions dedups and keeps weight >= 0.5
func DefaultOptions() Options { return Options{Deduplicate: true, MinWeight: 0.5} }

// Item is one transformed entry. The set of implementations is closed: Line, Improvement, ActionItem
type Item interface{ item() }

// Line is a plain string entry
type Line string

// Improvement is a structured protocol improvement
type Improvement struct {
	Category      string  `json:"category"`
	Improvement   string  `json:"improvement"`
	Evidence      string  `json:"evidence"`
	Impact        string  `json:"impact"`
	AffectedPhase *string `json:"affected_phase"`
}

// ActionItem is a structured follow-up
type ActionItem struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

func (Line) item()        {}
func (Improvement) item() {}
func (ActionItem) item()  {}

// Metadata describes how a result was produced
type Metadata struct {
	AggregatedAt      time.Time           `json:"aggregatedAt"`
	Source            string              `json:"source"`
	OriginalCount     int                 `json:"originalCount"`
	FilteredCount     int                 `json:"filteredCount"`
	DeduplicatedCount int                 `json:"deduplicatedCount"`
	Categories        []patterns.Category `json:"categories"`
}

// Result is the aggregated content for one directive
type Result struct {
	HasSignals        bool             `json:"hasSignals"`
	SignalCount       int              `json:"signalCount"`
	Content           map[Field][]Item `json:"content"`
	FieldCounts       map[Field]int    `json:"fieldCounts"`
	Metadata          *Metadata        `json:"metadata,omitempty"`
	AuthenticityScore int              `json:"authenticityScore"`
}

// Empty is the zero result returned when nothing was captured
func Empty() Result {
	return Result{Content: map[Field][]Item{}, FieldCounts: map[Field]int{}}
}

// Retrospective is the caller-owned record. Only list fields are touched, by name
type Retrospective = map[string]any

// TimeRange bounds capture times; both ends are nil when there are no records
type TimeRange struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

// StatsResult summarizes every record captured for a directive
type StatsResult struct {
	Total      int                       `json:"total"`
	ByCategory map[patterns.Category]int `json:"byCategory"`
	AvgWeight  float64                   `json:"avgWeight"`
	TimeRange  TimeRange                 `json:"timeRange"`
}

// Source reads persisted records for a directive
type Source interface {
	ForDirective(ctx context.Context, directiveID string, from sdom.Backend) ([]sdom.Record, error)
}

// AggregatorPort is what the facade needs from this service
type AggregatorPort interface {
	Aggregate(ctx context.Context, directiveID string, opts Options) Result
	Stats(ctx context.Context, directiveID string) StatsResult
}
