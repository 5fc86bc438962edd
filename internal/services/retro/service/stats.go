package service

import (
	"context"

	"retrosignal/internal/core/patterns"
	dom "retrosignal/internal/services/retro/domain"
)

// Stats summarizes every record of a directive without filtering or dedup
func (a *Aggregator) Stats(ctx context.Context, directiveID string) dom.StatsResult {
	out := dom.StatsResult{ByCategory: map[patterns.Category]int{}}

	recs, err := a.src.ForDirective(ctx, directiveID, a.cfg.From)
	if err != nil {
		a.log.Warn().Err(err).Str("directive_id", directiveID).Msg("stats retrieve failed")
		return out
	}
	if len(recs) == 0 {
		return out
	}

	var sum float64
	earliest, latest := recs[0].Timestamp, recs[0].Timestamp
	for _, r := range recs {
		out.ByCategory[r.Category]++
		sum += r.Weight
		if r.Timestamp.Before(earliest) {
			earliest = r.Timestamp
		}
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	out.Total = len(recs)
	out.AvgWeight = sum / float64(len(recs))
	earliest, latest = earliest.UTC(), latest.UTC()
	out.TimeRange = dom.TimeRange{Earliest: &earliest, Latest: &latest}
	return out
}
