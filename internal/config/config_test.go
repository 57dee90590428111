package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retrace.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Strategy != "both" {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, "both")
	}
	if cfg.Threshold != 5 {
		t.Errorf("Threshold = %d, want 5", cfg.Threshold)
	}
	if cfg.RegionPx != 100 {
		t.Errorf("RegionPx = %d, want 100", cfg.RegionPx)
	}
	if !cfg.Browser.Headless {
		t.Error("Headless should default to true")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
strategy: execute
visual_verification_method: phash
visual_validation_threshold: 10
replay_delay: 2s
browser:
  headless: false
  start_url: https://example.com
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Strategy != "execute" {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, "execute")
	}
	if cfg.Method != "phash" {
		t.Errorf("Method = %q, want %q", cfg.Method, "phash")
	}
	if cfg.Threshold != 10 {
		t.Errorf("Threshold = %d, want 10", cfg.Threshold)
	}
	if cfg.ReplayDelay != 2*time.Second {
		t.Errorf("ReplayDelay = %v, want 2s", cfg.ReplayDelay)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should be overridden to false")
	}
	// Untouched fields keep their defaults.
	if cfg.CacheDir != ".retrace/cache" {
		t.Errorf("CacheDir = %q, want default", cfg.CacheDir)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "stratergy: both\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should reject unknown keys")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "strategy: record\n")
	t.Setenv("RETRACE_STRATEGY", "execute")
	t.Setenv("RETRACE_THRESHOLD", "12")
	t.Setenv("RETRACE_HEADLESS", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Strategy != "execute" {
		t.Errorf("Strategy = %q, want env override", cfg.Strategy)
	}
	if cfg.Threshold != 12 {
		t.Errorf("Threshold = %d, want 12", cfg.Threshold)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should be overridden by env")
	}
}

func TestLoad_APIKeyFallback(t *testing.T) {
	t.Setenv("RETRACE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Planner.APIKey != "sk-fallback" {
		t.Errorf("APIKey = %q, want fallback from OPENAI_API_KEY", cfg.Planner.APIKey)
	}

	t.Setenv("RETRACE_API_KEY", "sk-primary")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Planner.APIKey != "sk-primary" {
		t.Errorf("APIKey = %q, want RETRACE_API_KEY to win", cfg.Planner.APIKey)
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("RETRACE_THRESHOLD", "lots")
	if _, err := Load(""); err == nil {
		t.Fatal("Load() should reject non-numeric threshold")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown strategy", func(c *Config) { c.Strategy = "sometimes" }},
		{"unknown method", func(c *Config) { c.Method = "dhash" }},
		{"threshold too high", func(c *Config) { c.Threshold = 65 }},
		{"negative threshold", func(c *Config) { c.Threshold = -1 }},
		{"zero region with validation", func(c *Config) { c.RegionPx = 0 }},
		{"empty cache dir", func(c *Config) { c.CacheDir = "" }},
		{"zero max steps", func(c *Config) { c.MaxLiveSteps = 0 }},
		{"negative delay", func(c *Config) { c.ReplayDelay = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should have failed")
			}
		})
	}

	// Region is irrelevant when validation is off.
	cfg := Default()
	cfg.Method = "none"
	cfg.RegionPx = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}
