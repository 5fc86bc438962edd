// Package patterns loads and compiles the categorized learning-moment rules from the embedded
// patterns.json. A Registry is an explicit object handed to each detector; rules may be appended
// at runtime
package patterns

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
)

//go:embed patterns.json
var embedded []byte

// Category tags one kind of learning moment
type Category string

const (
	// Discovery is new information or the real cause of a problem
	Discovery Category = "discovery"
	// Resolution is a confirmed fix
	Resolution Category = "resolution"
	// Causal is cause and effect understanding
	Causal Category = "causal"
	// Hindsight is a lesson recognised after the fact
	Hindsight Category = "hindsight"
	// Recurrence is a repeated problem
	Recurrence Category = "recurrence"
)

// All returns every known category in canonical order
func All() []Category {
	return []Category{Discovery, Resolution, Causal, Hindsight, Recurrence}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case Discovery, Resolution, Causal, Hindsight, Recurrence:
		return true
	}
	return false
}

// Rule is one compiled detection expression
type Rule struct {
	Expr string // source as authored, without the case-insensitive flag
	re   *regexp.Regexp
}

// Regexp returns the compiled, case-insensitive expression
func (r Rule) Regexp() *regexp.Regexp { return r.re }

// Config is the configuration of one category
type Config struct {
	Name        Category
	Weight      float64
	Description string
	Rules       []Rule
}

type rawCategory struct {
	Name        string   `json:"name"`
	Weight      float64  `json:"weight"`
	Description string   `json:"description"`
	Patterns    []string `json:"patterns"`
}

type rawRegistry struct {
	Version    int           `json:"version"`
	Categories []rawCategory `json:"categories"`
}

// Registry maps categories to their rules and weights
// iteration order is the order categories appear in the source document
type Registry struct {
	Version int

	mu     sync.RWMutex
	order  []Category
	byName map[Category]*Config
}

// Load returns the registry compiled from the embedded patterns.json
func Load() (*Registry, error) {
	return Parse(embedded)
}

// MustLoad is Load that panics on error
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse compiles a registry from a patterns document
func Parse(data []byte) (*Registry, error) {
	var raw rawRegistry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("patterns: parse: %w", err)
	}
	if raw.Version != 1 {
		return nil, fmt.Errorf("patterns: unsupported version %d (want 1)", raw.Version)
	}

	r := &Registry{
		Version: raw.Version,
		byName:  make(map[Category]*Config, len(raw.Categories)),
	}
	for _, rc := range raw.Categories {
		name := Category(rc.Name)
		if !name.Valid() {
			return nil, fmt.Errorf("patterns: unknown category %q", rc.Name)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("patterns: duplicate category %q", rc.Name)
		}
		if rc.Weight < 0 || rc.Weight > 1 {
			return nil, fmt.Errorf("patterns: weight %v for %q outside [0,1]", rc.Weight, rc.Name)
		}
		cfg := &Config{Name: name, Weight: rc.Weight, Description: rc.Description}
		for _, expr := range rc.Patterns {
			rule, err := compile(expr)
			if err != nil {
				return nil, fmt.Errorf("patterns: %s: %w", rc.Name, err)
			}
			cfg.Rules = append(cfg.Rules, rule)
		}
		r.order = append(r.order, name)
		r.byName[name] = cfg
	}
	return r, nil
}

func compile(expr string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Rule{}, fmt.Errorf("compile %q: %w", expr, err)
	}
	return Rule{Expr: expr, re: re}, nil
}

// Categories lists the registered categories in registry order
func (r *Registry) Categories() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Category(nil), r.order...)
}

// Category returns a copy of one category's configuration
func (r *Registry) Category(c Category) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byName[c]
	if !ok {
		return Config{}, false
	}
	return cloneConfig(cfg), true
}

// Weight returns the fixed weight of c, or 0 when c is not registered
func (r *Registry) Weight(c Category) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cfg, ok := r.byName[c]; ok {
		return cfg.Weight
	}
	return 0
}

// Snapshot returns copies of every category configuration in registry order
func (r *Registry) Snapshot() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, cloneConfig(r.byName[c]))
	}
	return out
}

// AddPattern appends a rule to an existing category.
// An unknown category is silently ignored and reports false with a nil error;
// only an expression that fails to compile is an error
func (r *Registry) AddPattern(c Category, expr string) (bool, error) {
	rule, err := compile(expr)
	if err != nil {
		return false, fmt.Errorf("patterns: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byName[c]
	if !ok {
		return false, nil
	}
	cfg.Rules = append(cfg.Rules, rule)
	return true, nil
}

func cloneConfig(c *Config) Config {
	out := *c
	out.Rules = append([]Rule(nil), c.Rules...)
	return out
}
