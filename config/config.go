// Package config loads the responsecore YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/responsecore/engine/responses"
	"github.com/nathoo/responsecore/engine/rules"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "responsecore.yaml"

// DefaultRuleset names the global ruleset in Rulesets.
const DefaultRuleset = "default"

// Config holds all responsecore configuration.
type Config struct {
	// Seed drives tie-breaks and sampling. 0 picks a time-based seed.
	Seed int64 `yaml:"seed"`

	// Selection tuning
	MaxReferenceDepth int     `yaml:"max_reference_depth"`
	TieEpsilon        float32 `yaml:"tie_epsilon"`
	PrecacheOnLoad    bool    `yaml:"precache_on_load"`

	LogLevel string `yaml:"log_level"` // trace, debug, info, warn, error

	// Rulesets maps a ruleset name to its directory. "default" is the
	// global ruleset; the others are instanced.
	Rulesets map[string]string `yaml:"rulesets"`

	SaveDir string `yaml:"save_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	saveDir := ".responsecore/saves"
	if home, err := os.UserHomeDir(); err == nil {
		saveDir = filepath.Join(home, saveDir)
	}
	return &Config{
		MaxReferenceDepth: responses.DefaultMaxDepth,
		TieEpsilon:        rules.DefaultEpsilon,
		PrecacheOnLoad:    true,
		LogLevel:          "info",
		Rulesets:          map[string]string{DefaultRuleset: "rulesets/demo"},
		SaveDir:           saveDir,
	}
}

// Load reads a config file over the defaults. A missing file yields the
// defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies RESPONSECORE_SEED and RESPONSECORE_LOG_LEVEL.
func (c *Config) applyEnvOverrides() error {
	if s := os.Getenv("RESPONSECORE_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("RESPONSECORE_SEED: %w", err)
		}
		c.Seed = seed
	}
	if level := os.Getenv("RESPONSECORE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MaxReferenceDepth < 1 {
		return fmt.Errorf("max_reference_depth must be at least 1, got %d", c.MaxReferenceDepth)
	}
	if c.TieEpsilon <= 0 {
		return fmt.Errorf("tie_epsilon must be positive, got %v", c.TieEpsilon)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Rulesets[DefaultRuleset] == "" {
		return fmt.Errorf("rulesets.%s is required", DefaultRuleset)
	}
	return nil
}

// Level returns the configured log level, info if it does not parse.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

// ResolveSeed returns the configured seed, or one derived from now when
// the seed is 0.
func (c *Config) ResolveSeed(now time.Time) int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return now.UnixNano()
}

// Instances returns the names of the instanced rulesets, sorted.
func (c *Config) Instances() []string {
	var names []string
	for name := range c.Rulesets {
		if name != DefaultRuleset {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
