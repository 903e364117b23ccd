// Package engineconfig loads ioengine tunables from a JSON file, with
// environment variable overrides taking precedence, the same layering
// the rest of this module's ambient stack uses for configuration.
//
// Configuration sources for Load (in order of precedence):
//  1. Environment variables (highest priority)
//  2. Configuration file (JSON format)
//  3. DefaultConfig values (lowest priority)
//
// GetPreset returns a preset as-is; no file or environment override is
// applied on top of it.
package engineconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/asyncfs/ioengine/logctx"
)

// Config holds the tunables an Engine is constructed or adjusted with.
type Config struct {
	MinParallel int `json:"min_parallel"`
	MaxParallel int `json:"max_parallel"`
	MaxIdle     int `json:"max_idle"`
	MaxPollReqs int `json:"max_poll_reqs"`
	MaxPollTimeMS int `json:"max_poll_time_ms"`

	Logging LoggingConfig `json:"logging"`
}

// LoggingConfig controls the engine's structured logger.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns the engine's baseline tunables: a single worker
// grown elastically up to 16, with 4 surplus idle workers tolerated
// before retirement, and an unbounded poll budget.
func DefaultConfig() *Config {
	return &Config{
		MinParallel: 1,
		MaxParallel: 16,
		MaxIdle:     4,
		MaxPollReqs: 0,
		MaxPollTimeMS: 0,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LowLatencyPreset favors a larger always-on pool and a tight poll budget,
// for a host that calls Poll from a latency-sensitive loop (e.g. a FUSE
// dispatch goroutine) and can't afford one slow Finish callback to hold up
// the next frame.
func LowLatencyPreset() *Config {
	c := DefaultConfig()
	c.MinParallel = 4
	c.MaxParallel = 32
	c.MaxPollReqs = 16
	return c
}

// BatchPreset favors throughput over responsiveness: a large pool, a
// generous idle allowance so workers don't churn between bursts, and an
// unbounded poll budget so a single Poll call drains everything pending.
func BatchPreset() *Config {
	c := DefaultConfig()
	c.MinParallel = 8
	c.MaxParallel = 64
	c.MaxIdle = 16
	return c
}

// GetPreset resolves a preset name, defaulting to DefaultConfig for an
// empty string.
func GetPreset(name string) (*Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "low-latency":
		return LowLatencyPreset(), nil
	case "batch":
		return BatchPreset(), nil
	default:
		return nil, fmt.Errorf("engineconfig: unknown preset %q (want default, low-latency, or batch)", name)
	}
}

// Load reads configPath if non-empty, then applies environment overrides,
// starting from DefaultConfig.
func Load(configPath string) (*Config, error) {
	c := DefaultConfig()
	if configPath != "" {
		if err := c.loadFromFile(configPath); err != nil {
			return nil, err
		}
	}
	c.applyEnvironmentOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("engineconfig: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("engineconfig: parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides lets IOENGINE_* environment variables win over
// whatever the file (or defaults) set, the same precedence order the rest
// of this module's configuration loading follows.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv("IOENGINE_MIN_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinParallel = n
		}
	}
	if v := os.Getenv("IOENGINE_MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxParallel = n
		}
	}
	if v := os.Getenv("IOENGINE_MAX_IDLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIdle = n
		}
	}
	if v := os.Getenv("IOENGINE_MAX_POLL_REQS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxPollReqs = n
		}
	}
	if v := os.Getenv("IOENGINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IOENGINE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the tunables for internal consistency, returning a
// descriptive error naming the offending field rather than letting the
// engine fail confusingly later.
func (c *Config) Validate() error {
	if c.MinParallel < 1 {
		return fmt.Errorf("engineconfig: min_parallel must be >= 1, got %d", c.MinParallel)
	}
	if c.MaxParallel < c.MinParallel {
		return fmt.Errorf("engineconfig: max_parallel (%d) must be >= min_parallel (%d)", c.MaxParallel, c.MinParallel)
	}
	if c.MaxIdle < 0 {
		return fmt.Errorf("engineconfig: max_idle must be >= 0, got %d", c.MaxIdle)
	}
	if _, err := logctx.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("engineconfig: logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("engineconfig: logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// SaveToFile serializes c as indented JSON to path.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("engineconfig: marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("engineconfig: writing %s: %w", path, err)
	}
	return nil
}
