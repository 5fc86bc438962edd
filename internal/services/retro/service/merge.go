package service

import (
	"reflect"
	"sort"

	dom "retrosignal/internal/services/retro/domain"
)

const (
	keyMetadata = "signal_metadata"
	keyScore    = "signal_authenticity_score"

	// provenance marker on structured entries
	sourceKey   = "_source"
	sourceValue = "captured_signal"
)

// Merge returns a shallow copy of existing with r appended field by field.
// Strings already present are not repeated; structured items are always appended.
// Nothing is ever removed
func Merge(existing dom.Retrospective, r dom.Result) dom.Retrospective {
	out := make(dom.Retrospective, len(existing)+2)
	for k, v := range existing {
		out[k] = v
	}
	out[keyMetadata] = signalMetadata(r)
	if !r.HasSignals {
		return out
	}

	fields := make([]string, 0, len(r.Content))
	for f := range r.Content {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	for _, f := range fields {
		list := asList(out[f])
		for _, it := range r.Content[dom.Field(f)] {
			switch v := it.(type) {
			case dom.Line:
				if !hasString(list, string(v)) {
					list = append(list, string(v))
				}
			case dom.Improvement:
				list = append(list, map[string]any{
					"category":       v.Category,
					"improvement":    v.Improvement,
					"evidence":       v.Evidence,
					"impact":         v.Impact,
					"affected_phase": v.AffectedPhase,
					sourceKey:        sourceValue,
				})
			case dom.ActionItem:
				list = append(list, map[string]any{
					"text":     v.Text,
					"category": v.Category,
					sourceKey:  sourceValue,
				})
			}
		}
		out[f] = list
	}
	out[keyScore] = r.AuthenticityScore
	return out
}

func signalMetadata(r dom.Result) map[string]any {
	counts := make(map[string]int, len(r.FieldCounts))
	for f, n := range r.FieldCounts {
		counts[string(f)] = n
	}
	m := map[string]any{
		"hasSignals":  r.HasSignals,
		"signalCount": r.SignalCount,
		"fieldCounts": counts,
	}
	if r.Metadata != nil {
		m["aggregatedAt"] = r.Metadata.AggregatedAt
		m["source"] = r.Metadata.Source
		m["originalCount"] = r.Metadata.OriginalCount
		m["filteredCount"] = r.Metadata.FilteredCount
		m["deduplicatedCount"] = r.Metadata.DeduplicatedCount
		m["categories"] = r.Metadata.Categories
	}
	return m
}

// asList coerces an existing field value into a fresh []any: nil is empty, slices are copied, scalars wrap
func asList(v any) []any {
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		return append([]any(nil), x...)
	case []string:
		out := make([]any, 0, len(x))
		for _, s := range x {
			out = append(out, s)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, rv.Index(i).Interface())
		}
		return out
	}
	return []any{v}
}

func hasString(xs []any, s string) bool {
	for _, x := range xs {
		if v, ok := x.(string); ok && v == s {
			return true
		}
	}
	return false
}
