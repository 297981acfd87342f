package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so configuration files can use readable
// values such as "500ms" or "2s". yaml.v3 would otherwise only accept
// raw nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. It accepts either a
// time.ParseDuration string or a bare integer in nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler so durations round-trip in the
// readable string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// CatalogConfig holds per-catalog configuration for a single site.
// This allows customizing crawl behavior per catalog host.
type CatalogConfig struct {
	// Name overrides the display name of the root node for this catalog.
	Name string `yaml:"name,omitempty"`

	// Headers are custom HTTP headers to include in requests to this
	// catalog. Useful for sites that require a session cookie to expose
	// the full listing.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Delay overrides the global crawl delay for this catalog.
	// If zero, the global CrawlDelay is used.
	Delay Duration `yaml:"delay,omitempty"`

	// Concurrency overrides the global fetch concurrency for this catalog.
	// If zero, the global Concurrency is used.
	Concurrency int `yaml:"concurrency,omitempty"`

	// MaxPages overrides the global page cap for this catalog.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// NoiseParams are query parameter names stripped during address
	// normalization for this catalog. If empty, the built-in pagination
	// parameters (limit, limitstart) are stripped.
	NoiseParams []string `yaml:"noiseParams,omitempty"`
}

// File represents the structure of the .catalogsnap configuration file.
type File struct {
	// Catalogs maps host names to their per-catalog configurations.
	// Keys should be the bare host (e.g., "onlinejudge.org").
	Catalogs map[string]CatalogConfig `yaml:"catalogs,omitempty"`

	// Defaults contains default catalog configuration applied to all
	// catalogs unless overridden in the per-catalog configuration.
	Defaults CatalogConfig `yaml:"defaults,omitempty"`
}

// GetCatalogConfig returns the configuration for a specific catalog host.
// It merges the per-catalog configuration with defaults.
func (cf *File) GetCatalogConfig(host string) CatalogConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with per-catalog configuration if present
	if catalogConfig, ok := cf.Catalogs[host]; ok {
		if catalogConfig.Name != "" {
			result.Name = catalogConfig.Name
		}
		if catalogConfig.Delay != 0 {
			result.Delay = catalogConfig.Delay
		}
		if catalogConfig.Concurrency != 0 {
			result.Concurrency = catalogConfig.Concurrency
		}
		if catalogConfig.MaxPages != 0 {
			result.MaxPages = catalogConfig.MaxPages
		}
		if len(catalogConfig.Headers) > 0 {
			// Copy into a fresh map so the shared defaults are not mutated.
			merged := make(map[string]string, len(result.Headers)+len(catalogConfig.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range catalogConfig.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
		if len(catalogConfig.NoiseParams) > 0 {
			result.NoiseParams = catalogConfig.NoiseParams
		}
	}

	return result
}
