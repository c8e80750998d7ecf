package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Hive configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/hive/config.yaml
Project-specific overrides can be placed in .hive.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	key, source, _ := config.ResolveAPIKey(cfg)
	fmt.Printf("anthropic.api_key: %s (%s)\n", config.MaskAPIKey(key), source)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("learning.alpha: %g\n", cfg.Learning.Alpha)
	fmt.Printf("learning.epsilon: %g\n", cfg.Learning.Epsilon)
	fmt.Printf("retry.max_retries: %d\n", cfg.Retry.MaxRetries)
	fmt.Printf("retry.backoff_base: %s\n", cfg.Retry.BackoffBase)
	fmt.Printf("retry.backoff_cap: %s\n", cfg.Retry.BackoffCap)
	fmt.Printf("execution.hard_timeout: %s\n", cfg.Execution.HardTimeout)
	fmt.Printf("intent.confidence_threshold: %g\n", cfg.Intent.ConfidenceThreshold)
	fmt.Printf("intent.rules_path: %s\n", cfg.Intent.RulesPath)
	fmt.Printf("store.path: %s\n", cfg.Store.Path)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue returns the string form of a configuration key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		key, source, _ := config.ResolveAPIKey(cfg)
		return fmt.Sprintf("%s (%s)", config.MaskAPIKey(key), source), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "learning.alpha":
		return strconv.FormatFloat(cfg.Learning.Alpha, 'g', -1, 64), nil
	case "learning.epsilon":
		return strconv.FormatFloat(cfg.Learning.Epsilon, 'g', -1, 64), nil
	case "retry.max_retries":
		return strconv.Itoa(cfg.Retry.MaxRetries), nil
	case "retry.backoff_base":
		return cfg.Retry.BackoffBase.String(), nil
	case "retry.backoff_cap":
		return cfg.Retry.BackoffCap.String(), nil
	case "execution.hard_timeout":
		return cfg.Execution.HardTimeout.String(), nil
	case "intent.confidence_threshold":
		return strconv.FormatFloat(cfg.Intent.ConfidenceThreshold, 'g', -1, 64), nil
	case "intent.rules_path":
		return cfg.Intent.RulesPath, nil
	case "store.path":
		return cfg.Store.Path, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue parses and applies a configuration value.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Anthropic.UseBedrock = b
	case "learning.alpha":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("alpha must be in (0, 1]: %s", value)
		}
		cfg.Learning.Alpha = f
	case "learning.epsilon":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("epsilon must be in [0, 1]: %s", value)
		}
		cfg.Learning.Epsilon = f
	case "retry.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("max_retries must be a positive integer: %s", value)
		}
		cfg.Retry.MaxRetries = n
	case "retry.backoff_base":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Retry.BackoffBase = d
	case "retry.backoff_cap":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Retry.BackoffCap = d
	case "execution.hard_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Execution.HardTimeout = d
	case "intent.confidence_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("confidence_threshold must be in [0, 1]: %s", value)
		}
		cfg.Intent.ConfidenceThreshold = f
	case "intent.rules_path":
		cfg.Intent.RulesPath = value
	case "store.path":
		cfg.Store.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
