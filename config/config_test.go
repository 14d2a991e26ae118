package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.MaxReferenceDepth != 8 {
		t.Errorf("MaxReferenceDepth = %d, want 8", cfg.MaxReferenceDepth)
	}
	if cfg.TieEpsilon != 0.001 {
		t.Errorf("TieEpsilon = %v, want 0.001", cfg.TieEpsilon)
	}
	if !cfg.PrecacheOnLoad {
		t.Error("PrecacheOnLoad should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Rulesets[DefaultRuleset] == "" {
		t.Error("default ruleset should be set")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxReferenceDepth != 8 {
		t.Errorf("expected defaults, got MaxReferenceDepth %d", cfg.MaxReferenceDepth)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responsecore.yaml")
	content := "seed: 7\nrulesets:\n  default: ./rules\n  guard: ./guard\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.TieEpsilon != 0.001 {
		t.Errorf("TieEpsilon = %v, want default", cfg.TieEpsilon)
	}
	if cfg.Rulesets["guard"] != "./guard" {
		t.Errorf("Rulesets = %v", cfg.Rulesets)
	}
	if got := cfg.Instances(); len(got) != 1 || got[0] != "guard" {
		t.Errorf("Instances = %v, want [guard]", got)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("seed: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "responsecore.yaml")

	cfg := Default()
	cfg.Seed = 99
	cfg.LogLevel = "debug"
	cfg.Rulesets["town"] = "rulesets/town"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Seed != 99 {
		t.Errorf("Seed = %d, want 99", loaded.Seed)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", loaded.LogLevel)
	}
	if loaded.Rulesets["town"] != "rulesets/town" {
		t.Errorf("town ruleset = %q", loaded.Rulesets["town"])
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RESPONSECORE_SEED", "1234")
	t.Setenv("RESPONSECORE_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 1234 {
		t.Errorf("Seed = %d, want 1234", cfg.Seed)
	}
	if cfg.Level() != zerolog.WarnLevel {
		t.Errorf("Level = %v, want warn", cfg.Level())
	}
}

func TestConfig_EnvOverrides_BadSeed(t *testing.T) {
	t.Setenv("RESPONSECORE_SEED", "not-a-number")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for bad seed")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero depth", func(c *Config) { c.MaxReferenceDepth = 0 }},
		{"negative epsilon", func(c *Config) { c.TieEpsilon = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"no default ruleset", func(c *Config) { delete(c.Rulesets, DefaultRuleset) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_ResolveSeed(t *testing.T) {
	now := time.Unix(0, 555)
	cfg := Default()
	if got := cfg.ResolveSeed(now); got != 555 {
		t.Errorf("ResolveSeed = %d, want 555", got)
	}
	cfg.Seed = 3
	if got := cfg.ResolveSeed(now); got != 3 {
		t.Errorf("ResolveSeed = %d, want 3", got)
	}
}
