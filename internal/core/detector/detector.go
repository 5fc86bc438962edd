// Package detector finds learning-moment signals in free-form session text
package detector

import (
	"sort"
	"time"
	"unicode/utf8"

	"retrosignal/internal/core/patterns"
)

// DefaultContextWindow is the number of characters captured on each side of a match
const DefaultContextWindow = 200

// ellipsis marks a side of a context window that was cut short
const ellipsis = "..."

var now = time.Now

// Meta carries the optional identifiers stamped on every signal of a pass
type Meta struct {
	SessionID   string
	DirectiveID string
}

// Signal is one detected learning moment. Position is a byte offset into the input
type Signal struct {
	Category    patterns.Category
	Pattern     string
	MatchedText string
	Position    int
	Context     string
	Weight      float64
	Timestamp   time.Time
	SessionID   string
	DirectiveID string
	Metadata    map[string]any
}

// End is the exclusive byte offset of the match
func (s Signal) End() int { return s.Position + len(s.MatchedText) }

// Options controls detector behavior
type Options struct {
	// ContextWindow is the rune budget on each side of a match; <= 0 uses DefaultContextWindow
	ContextWindow int
}

// Detector scans text against a pattern registry
type Detector struct {
	reg  *patterns.Registry
	opts Options
}

// New creates a Detector over reg
func New(reg *patterns.Registry, opts Options) *Detector {
	if reg == nil {
		panic("detector: nil registry")
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	return &Detector{reg: reg, opts: opts}
}

// Registry returns the registry the detector scans with
func (d *Detector) Registry() *patterns.Registry { return d.reg }

// Detect returns the non-overlapping signals found in text, ordered by position.
// Overlapping candidates collapse to the higher weight; on equal weight the
// candidate from the earlier registry category is kept
func (d *Detector) Detect(text string, meta Meta) []Signal {
	if text == "" {
		return nil
	}

	ts := now().UTC()
	var cands []Signal
	for _, cfg := range d.reg.Snapshot() {
		for _, rule := range cfg.Rules {
			for _, loc := range rule.Regexp().FindAllStringIndex(text, -1) {
				start, end := loc[0], loc[1]
				cands = append(cands, Signal{
					Category:    cfg.Name,
					Pattern:     rule.Expr,
					MatchedText: text[start:end],
					Position:    start,
					Context:     contextAround(text, start, end, d.opts.ContextWindow),
					Weight:      cfg.Weight,
					Timestamp:   ts,
					SessionID:   meta.SessionID,
					DirectiveID: meta.DirectiveID,
					Metadata: map[string]any{
						"description": cfg.Description,
						"text_length": len(text),
					},
				})
			}
		}
	}
	return collapse(cands)
}

// HasSignals reports whether any rule matches text.
// Stops at the first match and builds no signals
func (d *Detector) HasSignals(text string) bool {
	if text == "" {
		return false
	}
	for _, cfg := range d.reg.Snapshot() {
		for _, rule := range cfg.Rules {
			if rule.Regexp().MatchString(text) {
				return true
			}
		}
	}
	return false
}

// collapse sorts candidates by position and drops overlaps, keeping the heavier one.
// The sort is stable so equal positions keep registry order
func collapse(cands []Signal) []Signal {
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Position < cands[j].Position })

	out := make([]Signal, 0, len(cands))
	for _, c := range cands {
		if n := len(out); n > 0 && c.Position < out[n-1].End() {
			if c.Weight > out[n-1].Weight {
				out[n-1] = c
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// contextAround returns up to win runes either side of [start,end), with an
// ellipsis on each side that was cut short
func contextAround(s string, start, end, win int) string {
	ls, rs := start, end
	for i := 0; i < win && ls > 0; i++ {
		_, n := utf8.DecodeLastRuneInString(s[:ls])
		ls -= n
	}
	for i := 0; i < win && rs < len(s); i++ {
		_, n := utf8.DecodeRuneInString(s[rs:])
		rs += n
	}

	out := s[ls:rs]
	if ls > 0 {
		out = ellipsis + out
	}
	if rs < len(s) {
		out += ellipsis
	}
	return out
}
