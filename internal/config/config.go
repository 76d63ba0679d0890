// Package config holds pipeline configuration, layered as defaults, then
// an optional TOML file, then FIREGATE_* environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/firegate/firegate/internal/packet"
)

// Config holds all application configuration.
type Config struct {
	Pipeline PipelineConfig `toml:"pipeline"`
	Logging  LogConfig      `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// PipelineConfig controls the ring buffer and the consumer pool.
type PipelineConfig struct {
	// Capacity is the ring buffer size in bytes.
	Capacity int `envconfig:"RING_CAPACITY" toml:"capacity"`
	// Workers is the consumer pool size.
	Workers int `envconfig:"WORKERS" toml:"workers"`
	// RateLimit caps enqueued frames per second; 0 disables pacing.
	RateLimit int `envconfig:"RATE_LIMIT" toml:"rate_limit"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the
	// listener entirely.
	Addr string `envconfig:"METRICS_ADDR" toml:"addr"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Capacity: 128 * packet.Size,
			Workers:  4,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Load layers environment variables over the defaults. Variables are
// prefixed FIREGATE_, e.g. FIREGATE_WORKERS.
func Load() (*Config, error) {
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays FIREGATE_* variables. Each section is processed on
// its own so the variable names stay flat (FIREGATE_WORKERS rather than
// FIREGATE_PIPELINE_WORKERS, which is what processing the whole struct
// would bind).
func applyEnv(cfg *Config) error {
	for _, section := range []interface{}{&cfg.Pipeline, &cfg.Logging, &cfg.Metrics} {
		if err := envconfig.Process("firegate", section); err != nil {
			return fmt.Errorf("config: read environment: %w", err)
		}
	}
	return nil
}

// LoadFile layers a TOML file, then the environment, over the defaults.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.Capacity < packet.Size {
		return fmt.Errorf("config: ring capacity %d below frame size %d",
			c.Pipeline.Capacity, packet.Size)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("config: worker count %d must be at least 1", c.Pipeline.Workers)
	}
	if c.Pipeline.RateLimit < 0 {
		return fmt.Errorf("config: negative rate limit %d", c.Pipeline.RateLimit)
	}
	return nil
}

// Render serializes the configuration as TOML, used by `firegate config
// init` to write a starter file.
func (c *Config) Render() ([]byte, error) {
	return toml.Marshal(c)
}
