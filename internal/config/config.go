// Package config handles configuration loading and management for Hive.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Hive.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Learning  LearningConfig  `mapstructure:"learning"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Intent    IntentConfig    `mapstructure:"intent"`
	Store     StoreConfig     `mapstructure:"store"`
}

// AnthropicConfig holds Anthropic API settings for the intent fallback.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes inference calls through AWS Bedrock instead of the direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// LearningConfig holds pattern-learning tunables.
type LearningConfig struct {
	// Alpha is the EMA weight given to the most recent duration observation.
	Alpha float64 `mapstructure:"alpha"`
	// Epsilon is the exploration probability for agent selection.
	Epsilon float64 `mapstructure:"epsilon"`
}

// RetryConfig holds retry policy settings for failed executions.
type RetryConfig struct {
	// MaxRetries is the maximum number of execution attempts per task.
	MaxRetries int `mapstructure:"max_retries"`
	// BackoffBase is the delay before the first retry; doubles each attempt.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// BackoffCap bounds the backoff delay.
	BackoffCap time.Duration `mapstructure:"backoff_cap"`
}

// ExecutionConfig holds execution engine settings.
type ExecutionConfig struct {
	// HardTimeout force-fails an executor call that ignores cancellation.
	HardTimeout time.Duration `mapstructure:"hard_timeout"`
}

// IntentConfig holds intent parser settings.
type IntentConfig struct {
	// ConfidenceThreshold is the minimum rule-match confidence below which
	// the inference fallback (if configured) is consulted.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	// RulesPath points to an optional YAML rule table overriding the built-in rules.
	RulesPath string `mapstructure:"rules_path"`
}

// StoreConfig holds pattern store settings.
type StoreConfig struct {
	// Path is the SQLite database path. Empty selects the project default.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.hive.yaml in current directory or parent)
// 3. User config (~/.config/hive/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("learning.alpha", cfg.Learning.Alpha)
	v.Set("learning.epsilon", cfg.Learning.Epsilon)
	v.Set("retry.max_retries", cfg.Retry.MaxRetries)
	v.Set("retry.backoff_base", cfg.Retry.BackoffBase.String())
	v.Set("retry.backoff_cap", cfg.Retry.BackoffCap.String())
	v.Set("execution.hard_timeout", cfg.Execution.HardTimeout.String())
	v.Set("intent.confidence_threshold", cfg.Intent.ConfidenceThreshold)
	v.Set("intent.rules_path", cfg.Intent.RulesPath)
	v.Set("store.path", cfg.Store.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// ProjectStorePath returns the default pattern database path for a project root.
func ProjectStorePath(projectRoot string) string {
	return filepath.Join(projectRoot, ".hive", "patterns.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("learning.alpha", 0.2)
	v.SetDefault("learning.epsilon", 0.1)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.backoff_base", "100ms")
	v.SetDefault("retry.backoff_cap", "5s")

	v.SetDefault("execution.hard_timeout", "2m")

	v.SetDefault("intent.confidence_threshold", 0.5)
	v.SetDefault("intent.rules_path", "")

	v.SetDefault("store.path", "")
}

// getUserConfigDir returns the XDG config directory for Hive.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hive")
	}
	return filepath.Join(home, ".config", "hive")
}

// findProjectConfig searches for .hive.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".hive.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Learning: LearningConfig{
			Alpha:   0.2,
			Epsilon: 0.1,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BackoffBase: 100 * time.Millisecond,
			BackoffCap:  5 * time.Second,
		},
		Execution: ExecutionConfig{
			HardTimeout: 2 * time.Minute,
		},
		Intent: IntentConfig{
			ConfidenceThreshold: 0.5,
		},
	}
}
