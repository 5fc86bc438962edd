package service

import (
	"context"

	"retrosignal/internal/platform/logger"
	dom "retrosignal/internal/services/signals/domain"
	"retrosignal/internal/services/signals/repo"
)

// Retriever reads records back from the primary with the bundle directory as fallback
type Retriever struct {
	primary dom.DirectiveReader
	bundle  dom.BundleStorage
	log     *logger.Logger
}

// NewRetriever constructs a retriever. primary may be nil
func NewRetriever(primary dom.DirectiveReader, bundle dom.BundleStorage) *Retriever {
	if bundle == nil {
		panic("signals retriever: nil bundle storage")
	}
	return &Retriever{primary: primary, bundle: bundle, log: logger.Named("signals-retriever")}
}

var _ dom.RetrieverPort = (*Retriever)(nil)

// ForDirective returns the records for a directive, most recent first.
// Bundle records are merged into a primary read so batches that fell back stay visible
func (r *Retriever) ForDirective(ctx context.Context, directiveID string, from dom.Backend) ([]dom.Record, error) {
	if from == dom.BackendFile || r.primary == nil {
		return r.bundle.ListByDirective(ctx, directiveID)
	}

	rows, err := r.primary.ListByDirective(ctx, directiveID)
	if err != nil {
		r.log.Warn().Err(err).Str("directive_id", directiveID).Msg("primary read failed, using bundles")
		return r.bundle.ListByDirective(ctx, directiveID)
	}

	files, err := r.bundle.ListByDirective(ctx, directiveID)
	if err != nil {
		r.log.Warn().Err(err).Str("directive_id", directiveID).Msg("bundle read failed")
		return rows, nil
	}
	return mergeByID(rows, files), nil
}

// ForSession concatenates the bundles written for a session
func (r *Retriever) ForSession(ctx context.Context, sessionID string) ([]dom.Record, error) {
	return r.bundle.ListBySession(ctx, sessionID)
}

// mergeByID unions a and b keeping the first copy of each id, most recent first
func mergeByID(a, b []dom.Record) []dom.Record {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]dom.Record, 0, len(a)+len(b))
	for _, xs := range [][]dom.Record{a, b} {
		for _, x := range xs {
			if _, ok := seen[x.ID]; ok {
				continue
			}
			seen[x.ID] = struct{}{}
			out = append(out, x)
		}
	}
	repo.SortRecent(out)
	return out
}
