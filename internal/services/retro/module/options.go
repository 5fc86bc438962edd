package module

import (
	"retrosignal/internal/platform/config"
	sdom "retrosignal/internal/services/signals/domain"
)

// Options controls aggregation defaults
type Options struct {
	MinWeight   float64
	Deduplicate bool
	// From is the backend read first, primary falls back to bundles
	From sdom.Backend
}

// FromConfig reads with CORE_RETRO_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_RETRO_")
	return Options{
		MinWeight:   c.MayFloat64("MIN_WEIGHT", 0.5),
		Deduplicate: c.MayBool("DEDUPLICATE", true),
		From:        sdom.Backend(c.MayEnum("READ_FROM", "primary", "primary", "file")),
	}
}
