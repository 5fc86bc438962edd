package patterns

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Overlay is an operator supplied file of extra rules, e.g.
//
//	categories:
//	  discovery:
//	    patterns:
//	      - "\\bgotcha\\b"
type Overlay struct {
	Categories map[string]struct {
		Patterns []string `yaml:"patterns"`
	} `yaml:"categories"`
}

// ApplyOverlay reads a YAML overlay and appends its rules through AddPattern.
// A missing file is not an error. Rules for unknown categories are skipped like AddPattern does.
// Returns the number of rules added
func (r *Registry) ApplyOverlay(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("patterns: read overlay: %w", err)
	}
	var ov Overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return 0, fmt.Errorf("patterns: parse overlay %s: %w", path, err)
	}

	added := 0
	// walk in registry order so additions are deterministic
	for _, c := range r.Categories() {
		blk, ok := ov.Categories[string(c)]
		if !ok {
			continue
		}
		for _, expr := range blk.Patterns {
			ok, err := r.AddPattern(c, expr)
			if err != nil {
				return added, err
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}
