// Package http provides http transport for learning moments
package http

import (
	stdhttp "net/http"

	"retrosignal/internal/core/detector"
	"retrosignal/internal/modkit/httpkit"
	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/services/api/moments/domain"
	mdom "retrosignal/internal/services/moments/domain"
	rdom "retrosignal/internal/services/retro/domain"
)

// Register mounts the signals and directives endpoints on the given router
func Register(r httpkit.Router, f mdom.FacadePort, defaults rdom.Options) {
	h := &handlers{f: f, defaults: defaults}

	r.Route("/signals", func(sr httpkit.Router) {
		httpkit.PostJSON[domain.CaptureInput](sr, "/capture", h.capture)
		httpkit.PostJSON[domain.CheckInput](sr, "/check", h.check)
		httpkit.Post(sr, "/flush", h.flush)
		httpkit.Get(sr, "/patterns", h.patterns)
	})

	scope := []httpkit.Middleware{httpkit.DirectiveScope("id")}
	httpkit.MountUnder(r, "/directives/{id}", scope, func(dr httpkit.Router) {
		httpkit.Get(dr, "/aggregate", h.aggregate)
		httpkit.PostJSON[domain.EnhanceInput](dr, "/enhance", h.enhance)
		httpkit.Get(dr, "/stats", h.stats)
	})
}

type handlers struct {
	f        mdom.FacadePort
	defaults rdom.Options
}

// swagger:route POST /signals/capture Signals signalsCapture
// @Summary Detect and buffer learning signals in text
// @Tags Signals
// @Accept json
// @Produce json
// @Param payload body domain.CaptureInput true "Text"
// @Success 200 {object} mdom.CaptureResult "ok"
// @Router /signals/capture [post]
func (h *handlers) capture(r *stdhttp.Request, in domain.CaptureInput) (any, error) {
	return h.f.CaptureSignals(r.Context(), in.Text, detector.Meta{
		SessionID:   in.SessionID,
		DirectiveID: in.DirectiveID,
	}), nil
}

// swagger:route POST /signals/check Signals signalsCheck
// @Summary Check text for learning moments without capturing
// @Tags Signals
// @Accept json
// @Produce json
// @Param payload body domain.CheckInput true "Text"
// @Success 200 {object} domain.CheckResponse "ok"
// @Router /signals/check [post]
func (h *handlers) check(_ *stdhttp.Request, in domain.CheckInput) (any, error) {
	return domain.CheckResponse{HasLearningMoments: h.f.HasLearningMoments(in.Text)}, nil
}

// swagger:route POST /signals/flush Signals signalsFlush
// @Summary Flush the capture buffer now
// @Tags Signals
// @Produce json
// @Success 200 {object} sdom.FlushReport "ok"
// @Router /signals/flush [post]
func (h *handlers) flush(r *stdhttp.Request) (any, error) {
	rep := h.f.Flush(r.Context())
	if !rep.OK() {
		return nil, perr.Unavailablef("flush failed, %d signals requeued", rep.Requeued)
	}
	return rep, nil
}

// swagger:route GET /signals/patterns Signals signalsPatterns
// @Summary Pattern categories with weights
// @Tags Signals
// @Produce json
// @Success 200 {array} mdom.PatternInfo "ok"
// @Router /signals/patterns [get]
func (h *handlers) patterns(_ *stdhttp.Request) (any, error) {
	return h.f.Patterns(), nil
}

// swagger:route GET /directives/{id}/aggregate Directives directivesAggregate
// @Summary Aggregate captured signals into retrospective content
// @Tags Directives
// @Produce json
// @Param id path string true "Directive id"
// @Param min_weight query number false "Weight floor (0..1)"
// @Param deduplicate query bool false "Drop repeated contexts"
// @Success 200 {object} rdom.Result "ok"
// @Router /directives/{id}/aggregate [get]
func (h *handlers) aggregate(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	opts, err := h.options(r)
	if err != nil {
		return nil, err
	}
	return h.f.GetAggregatedSignals(r.Context(), id, &opts), nil
}

// swagger:route POST /directives/{id}/enhance Directives directivesEnhance
// @Summary Merge captured signals into a retrospective record
// @Tags Directives
// @Accept json
// @Produce json
// @Param id path string true "Directive id"
// @Param payload body domain.EnhanceInput true "Retrospective"
// @Success 200 {object} map[string]any "ok"
// @Router /directives/{id}/enhance [post]
func (h *handlers) enhance(r *stdhttp.Request, in domain.EnhanceInput) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	return h.f.EnhanceRetrospective(r.Context(), in.Retrospective, id), nil
}

// swagger:route GET /directives/{id}/stats Directives directivesStats
// @Summary Totals, category counts and time range for a directive
// @Tags Directives
// @Produce json
// @Param id path string true "Directive id"
// @Success 200 {object} rdom.StatsResult "ok"
// @Router /directives/{id}/stats [get]
func (h *handlers) stats(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	return h.f.GetStats(r.Context(), id), nil
}

// options starts from the configured defaults and applies query overrides
func (h *handlers) options(r *stdhttp.Request) (rdom.Options, error) {
	o := h.defaults
	if w, ok, err := httpkit.QueryFloat(r, "min_weight"); err != nil {
		return o, err
	} else if ok {
		o.MinWeight = w
	}
	if d, ok, err := httpkit.QueryBool(r, "deduplicate"); err != nil {
		return o, err
	} else if ok {
		o.Deduplicate = d
	}
	return o, httpkit.Validate(o)
}
