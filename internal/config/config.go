// Package config loads and persists engine settings from a YAML file in
// the workspace, with environment-variable overrides for the runtime
// endpoint and API keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"cycled/internal/logging"
	"cycled/internal/policy"
)

// DefaultFileName is the config file location relative to the workspace.
const DefaultFileName = ".cycled/config.yaml"

// Duration supports the "30s"/"2m" YAML syntax for durations.
type Duration time.Duration

// StdDuration converts back to the standard library type.
func (d Duration) StdDuration() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Runtime selects and tunes the inference backend.
type Runtime struct {
	// Provider is "local" (an Ollama-compatible server) or "gemini".
	Provider string `yaml:"provider"`

	// BaseURL of the local runtime. Ignored for remote providers.
	BaseURL string `yaml:"base_url"`

	// APIKey for remote providers. Prefer the environment variable.
	APIKey string `yaml:"api_key,omitempty"`

	// Timeout per model invocation.
	Timeout Duration `yaml:"timeout"`
}

// Limits bounds autonomous execution.
type Limits struct {
	MaxLoops       int `yaml:"max_loops"`
	MaxToolOutput  int `yaml:"max_tool_output"`
	EventBusBuffer int `yaml:"event_bus_buffer"`
}

// Logging controls log output.
type Logging struct {
	Verbose bool `yaml:"verbose"`
}

// Config is everything the engine reads at startup.
type Config struct {
	Runtime   Runtime       `yaml:"runtime"`
	Preset    policy.Preset `yaml:"preset"`
	Workspace string        `yaml:"workspace"`
	StorePath string        `yaml:"store_path"`
	Limits    Limits        `yaml:"limits"`
	Logging   Logging       `yaml:"logging"`
}

// Default returns the baseline configuration rooted at the working
// directory.
func Default() Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return Config{
		Runtime: Runtime{
			Provider: "local",
			BaseURL:  "http://localhost:11434",
			Timeout:  Duration(2 * time.Minute),
		},
		Preset:    policy.PresetBalanced,
		Workspace: wd,
		StorePath: filepath.Join(wd, ".cycled", "cycled.db"),
		Limits: Limits{
			MaxLoops:       25,
			MaxToolOutput:  50_000,
			EventBusBuffer: 256,
		},
	}
}

// Load reads the config file at path, applying defaults for absent fields
// and environment overrides on top. A missing file yields the defaults
// without error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg as YAML at path, creating parent directories.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate rejects configurations the engine cannot start with.
func (c Config) Validate() error {
	switch c.Runtime.Provider {
	case "local", "gemini":
	default:
		return fmt.Errorf("unknown provider %q", c.Runtime.Provider)
	}
	if c.Runtime.Provider == "local" && c.Runtime.BaseURL == "" {
		return fmt.Errorf("local provider requires a base_url")
	}
	if c.Limits.MaxLoops < 0 {
		return fmt.Errorf("max_loops must not be negative")
	}
	return nil
}

// applyEnvOverrides lets the environment win over the file for the
// values that commonly differ per machine.
func applyEnvOverrides(cfg *Config) {
	log := logging.L(logging.CategoryConfig)

	if v := os.Getenv("CYCLED_BASE_URL"); v != "" {
		cfg.Runtime.BaseURL = v
		log.Debugw("base_url overridden from environment")
	}
	if v := os.Getenv("CYCLED_PROVIDER"); v != "" {
		cfg.Runtime.Provider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Runtime.APIKey = v
	}
	if v := os.Getenv("CYCLED_PRESET"); v != "" {
		cfg.Preset = policy.Preset(v)
	}
	if v := os.Getenv("CYCLED_MAX_LOOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Limits.MaxLoops = n
		} else {
			log.Warnw("ignoring invalid CYCLED_MAX_LOOPS", "value", v)
		}
	}
	if v := os.Getenv("CYCLED_VERBOSE"); v == "1" || v == "true" {
		cfg.Logging.Verbose = true
	}
}
