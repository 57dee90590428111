package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/retracehq/retrace/internal/engine"
	"github.com/retracehq/retrace/internal/trajectory"
)

// Config is the merged runtime configuration.
type Config struct {
	// Strategy is the cache strategy: record, execute, or both.
	Strategy string `yaml:"strategy"`

	// CacheDir holds trajectory documents.
	CacheDir string `yaml:"cache_dir"`

	// HistoryDB is the run-history database path. Empty disables the
	// audit trail.
	HistoryDB string `yaml:"history_db"`

	// Method is the visual verification method for new recordings.
	Method string `yaml:"visual_verification_method"`

	// RegionPx is the crop side length around coordinate targets.
	RegionPx int `yaml:"visual_validation_region_size"`

	// Threshold is the maximum tolerated Hamming distance.
	Threshold int `yaml:"visual_validation_threshold"`

	// ReplayDelay is the pause between replayed steps.
	ReplayDelay time.Duration `yaml:"replay_delay"`

	// MaxLiveSteps bounds live runs.
	MaxLiveSteps int `yaml:"max_live_steps"`

	Browser Browser `yaml:"browser"`
	Planner Planner `yaml:"planner"`
}

// Browser configures the rod executor.
type Browser struct {
	// Headless runs the browser without a window.
	Headless bool `yaml:"headless"`

	// StartURL is opened before the first action.
	StartURL string `yaml:"start_url"`

	// ActionTimeout bounds each dispatched action.
	ActionTimeout time.Duration `yaml:"action_timeout"`
}

// Planner configures the LLM decision engine. APIKey has no YAML key:
// it is only accepted from the environment.
type Planner struct {
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Strategy:     string(engine.StrategyBoth),
		CacheDir:     ".retrace/cache",
		HistoryDB:    ".retrace/history.db",
		Method:       string(trajectory.MethodAHash),
		RegionPx:     100,
		Threshold:    5,
		ReplayDelay:  500 * time.Millisecond,
		MaxLiveSteps: engine.DefaultMaxLiveSteps,
		Browser: Browser{
			Headless:      true,
			ActionTimeout: 15 * time.Second,
		},
		Planner: Planner{
			Model: "gpt-4o",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides. The .env
// file is optional; a missing one is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Strict parsing catches typos like "treshold:".
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Strategy, "RETRACE_STRATEGY")
	setString(&c.CacheDir, "RETRACE_CACHE_DIR")
	setString(&c.HistoryDB, "RETRACE_HISTORY_DB")
	setString(&c.Method, "RETRACE_VERIFICATION_METHOD")
	setString(&c.Browser.StartURL, "RETRACE_START_URL")
	setString(&c.Planner.Model, "RETRACE_MODEL")
	setString(&c.Planner.BaseURL, "RETRACE_BASE_URL")
	setString(&c.Planner.APIKey, "RETRACE_API_KEY")
	if c.Planner.APIKey == "" {
		setString(&c.Planner.APIKey, "OPENAI_API_KEY")
	}

	if err := setInt(&c.RegionPx, "RETRACE_REGION_SIZE"); err != nil {
		return err
	}
	if err := setInt(&c.Threshold, "RETRACE_THRESHOLD"); err != nil {
		return err
	}
	if err := setInt(&c.MaxLiveSteps, "RETRACE_MAX_LIVE_STEPS"); err != nil {
		return err
	}
	if err := setBool(&c.Browser.Headless, "RETRACE_HEADLESS"); err != nil {
		return err
	}
	if err := setDuration(&c.ReplayDelay, "RETRACE_REPLAY_DELAY"); err != nil {
		return err
	}
	return nil
}

// Validate checks cross-field consistency. The planner API key is not
// checked here; only live strategies need it, and the CLI decides that.
func (c *Config) Validate() error {
	if !engine.ValidStrategies[engine.Strategy(c.Strategy)] {
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	method := trajectory.VerificationMethod(c.Method)
	if !trajectory.ValidVerificationMethods[method] {
		return fmt.Errorf("unknown visual verification method %q", c.Method)
	}
	if c.Threshold < trajectory.MinThreshold || c.Threshold > trajectory.MaxThreshold {
		return fmt.Errorf("threshold %d outside [%d, %d]", c.Threshold, trajectory.MinThreshold, trajectory.MaxThreshold)
	}
	if method != trajectory.MethodNone && c.RegionPx <= 0 {
		return fmt.Errorf("region size must be positive when validation is enabled")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache directory not set")
	}
	if c.MaxLiveSteps <= 0 {
		return fmt.Errorf("max live steps must be positive")
	}
	if c.ReplayDelay < 0 {
		return fmt.Errorf("replay delay cannot be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
