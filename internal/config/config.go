package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssvmg10-debug/UI-automation/internal/rank"
)

// Config is the full runtime configuration. Defaults are usable as-is;
// a YAML file and then environment variables layer on top.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Extract ExtractConfig `yaml:"extract"`
	Filter  FilterConfig  `yaml:"filter"`
	Rank    RankConfig    `yaml:"rank"`
	Exec    ExecConfig    `yaml:"exec"`
	Flow    FlowConfig    `yaml:"flow"`
}

type BrowserConfig struct {
	Headless    bool   `yaml:"headless"`
	StoragePath string `yaml:"storage_path"`
}

type ExtractConfig struct {
	MaxClickables     int           `yaml:"max_clickables"`
	MaxInputs         int           `yaml:"max_inputs"`
	PerElementTimeout time.Duration `yaml:"per_element_timeout"`
}

type FilterConfig struct {
	MinArea float64 `yaml:"min_area"`
}

type RankConfig struct {
	Weights    rank.Weights    `yaml:"weights"`
	Thresholds rank.Thresholds `yaml:"thresholds"`
}

type ExecConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	ActionTimeout time.Duration `yaml:"action_timeout"`
	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	StopOnFailure bool          `yaml:"stop_on_failure"`
}

type FlowConfig struct {
	Enabled          bool   `yaml:"enabled"`
	StorePath        string `yaml:"store_path"`
	MinFragmentLen   int    `yaml:"min_fragment_len"`
	IncludeFormSteps bool   `yaml:"include_form_steps"`
	ShortcutsPath    string `yaml:"shortcuts_path"`
}

func Default() Config {
	return Config{
		Browser: BrowserConfig{Headless: true},
		Extract: ExtractConfig{
			MaxClickables:     350,
			MaxInputs:         50,
			PerElementTimeout: 2 * time.Second,
		},
		Filter: FilterConfig{MinArea: 25},
		Rank: RankConfig{
			Weights:    rank.DefaultWeights(),
			Thresholds: rank.DefaultThresholds(),
		},
		Exec: ExecConfig{
			MaxAttempts:   3,
			ActionTimeout: 10 * time.Second,
			WaitTimeout:   15 * time.Second,
			StopOnFailure: true,
		},
		Flow: FlowConfig{
			Enabled:        true,
			StorePath:      "fragments.db",
			MinFragmentLen: 2,
		},
	}
}

// Load builds the config: defaults, then the YAML file if given, then env.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Browser.Headless = boolEnv("UIAUTO_HEADLESS", c.Browser.Headless)
	c.Flow.Enabled = boolEnv("UIAUTO_FLOW_ENABLED", c.Flow.Enabled)
	if v := strings.TrimSpace(os.Getenv("UIAUTO_FRAGMENT_DB")); v != "" {
		c.Flow.StorePath = v
	}
	if v := strings.TrimSpace(os.Getenv("UIAUTO_STORAGE_STATE")); v != "" {
		c.Browser.StoragePath = v
	}
	c.Exec.MaxAttempts = intEnv("UIAUTO_MAX_ATTEMPTS", c.Exec.MaxAttempts)
	c.Exec.StopOnFailure = boolEnv("UIAUTO_STOP_ON_FAILURE", c.Exec.StopOnFailure)
}

func (c *Config) validate() error {
	w := c.Rank.Weights
	sum := w.ExactText + w.Similarity + w.Label + w.Role + w.Region + w.Visibility + w.Position
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("rank weights must sum to 1.0, got %.3f", sum)
	}
	th := c.Rank.Thresholds
	if th.Relaxed > th.Default {
		return fmt.Errorf("relaxed threshold %.2f above default %.2f", th.Relaxed, th.Default)
	}
	if c.Exec.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	return nil
}

func boolEnv(name string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func intEnv(name string, def int) int {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
