// Package config handles configuration loading for rulecheck.
// It supports XDG config paths, project-level overrides, environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dshills/rulecheck/internal/match"
	"github.com/dshills/rulecheck/internal/profile"
)

// ProjectConfigName is the project-level config file searched for in the
// working directory and its parents.
const ProjectConfigName = ".rulecheck.yaml"

// EnvPrefix prefixes environment overrides: RULECHECK_MATCH_MODE=fuzzy.
const EnvPrefix = "RULECHECK"

// Config holds all configuration for rulecheck.
type Config struct {
	Profile string        `mapstructure:"profile"`
	Match   match.Config  `mapstructure:"match"`
	Suggest SuggestConfig `mapstructure:"suggest"`
	Output  OutputConfig  `mapstructure:"output"`
}

// SuggestConfig holds settings for the optional suggestion generator.
type SuggestConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	GoogleAPIKey    string `mapstructure:"google_api_key"`
}

// APIKey returns the key configured for the named provider.
func (s SuggestConfig) APIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return s.OpenAIAPIKey
	case "google":
		return s.GoogleAPIKey
	default:
		return s.AnthropicAPIKey
	}
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// Options controls where Load looks for settings.
type Options struct {
	// Path is an explicit config file. It must exist when set.
	Path string
	// Flags, when set, are bound so that changed flags override every
	// other source. Only flags named in FlagKeys are bound.
	Flags *pflag.FlagSet
}

// FlagKeys maps config keys to the command-line flags that override them.
var FlagKeys = map[string]string{
	"profile":                      "profile",
	"match.mode":                   "mode",
	"match.item_policy":            "item-policy",
	"match.empty_lines":            "empty-lines",
	"match.partial_threshold":      "partial-threshold",
	"match.full_match_threshold":   "full-threshold",
	"match.numeric_document_check": "numeric-doc-check",
	"suggest.provider":             "provider",
	"suggest.model":                "model",
	"suggest.timeout":              "timeout",
	"output.format":                "format",
}

// Load loads configuration from XDG paths, project overrides, an explicit
// file, environment variables and flags.
// Precedence (highest to lowest):
//  1. Changed command-line flags
//  2. Environment variables (RULECHECK_*, ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY)
//  3. Explicit config file (Options.Path)
//  4. Project config (.rulecheck.yaml in current directory or parent)
//  5. User config ($XDG_CONFIG_HOME/rulecheck/config.yaml)
//  6. The selected profile's matching settings
//  7. Built-in defaults
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Load user config from XDG path
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		if err := mergeFile(v, projectConfig); err != nil {
			return nil, err
		}
	}

	if opts.Path != "" {
		if err := mergeFile(v, opts.Path); err != nil {
			return nil, err
		}
	}

	return finish(v, opts.Flags)
}

// LoadFromPath loads configuration from a specific path only, without user or
// project config (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return finish(v, nil)
}

// Default returns a Config with default values and the general profile.
func Default() *Config {
	return &Config{
		Profile: "general",
		Match:   match.DefaultConfig(),
		Suggest: SuggestConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-5",
			MaxTokens:   2048,
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Output: OutputConfig{Format: "json"},
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func mergeFile(v *viper.Viper, path string) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := v.MergeConfigMap(fv.AllSettings()); err != nil {
		return fmt.Errorf("config: merging %s: %w", path, err)
	}
	return nil
}

// finish applies env and flag overrides, then the selected profile's match
// settings as defaults, and unmarshals the result.
func finish(v *viper.Viper, flags *pflag.FlagSet) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map provider API key variables
	_ = v.BindEnv("suggest.anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("suggest.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("suggest.google_api_key", "GOOGLE_API_KEY")

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: binding flag --%s: %w", name, err)
				}
			}
		}
	}

	name := v.GetString("profile")
	prof, err := profile.Load(name)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	setMatchDefaults(v, prof.Config())

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	cfg.Match = cfg.Match.Normalize()
	if err := cfg.Match.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)

	// Expand ${VAR} references
	cfg.Suggest.AnthropicAPIKey = os.ExpandEnv(cfg.Suggest.AnthropicAPIKey)
	cfg.Suggest.OpenAIAPIKey = os.ExpandEnv(cfg.Suggest.OpenAIAPIKey)
	cfg.Suggest.GoogleAPIKey = os.ExpandEnv(cfg.Suggest.GoogleAPIKey)

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("profile", d.Profile)
	setMatchDefaults(v, d.Match)

	// Suggestion defaults
	v.SetDefault("suggest.provider", d.Suggest.Provider)
	v.SetDefault("suggest.model", d.Suggest.Model)
	v.SetDefault("suggest.max_tokens", d.Suggest.MaxTokens)
	v.SetDefault("suggest.temperature", d.Suggest.Temperature)
	v.SetDefault("suggest.timeout", d.Suggest.Timeout.String())
	v.SetDefault("suggest.anthropic_api_key", "")
	v.SetDefault("suggest.openai_api_key", "")
	v.SetDefault("suggest.google_api_key", "")

	// Output defaults
	v.SetDefault("output.format", d.Output.Format)
}

func setMatchDefaults(v *viper.Viper, m match.Config) {
	v.SetDefault("match.mode", string(m.Mode))
	v.SetDefault("match.item_policy", string(m.ItemPolicy))
	v.SetDefault("match.empty_lines", string(m.EmptyLines))
	v.SetDefault("match.partial_threshold", m.PartialThreshold)
	v.SetDefault("match.full_match_threshold", m.FullMatchThreshold)
	v.SetDefault("match.numeric_document_check", m.NumericDocumentCheck)
}

// getUserConfigDir returns the XDG config directory for rulecheck.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rulecheck")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "rulecheck")
	}
	return filepath.Join(home, ".config", "rulecheck")
}

// findProjectConfig searches for .rulecheck.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
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
