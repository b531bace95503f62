package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/rulecheck/internal/match"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolate points the user config at an empty directory and moves the working
// directory somewhere without a project config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "general", cfg.Profile)
	assert.Equal(t, match.DefaultConfig(), cfg.Match)
	assert.Equal(t, "anthropic", cfg.Suggest.Provider)
	assert.Equal(t, 60*time.Second, cfg.Suggest.Timeout)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadFromPath(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), "config.yaml", `
match:
  mode: fuzzy
  item_policy: all
  partial_threshold: 0.4
  full_match_threshold: 0.8
suggest:
  provider: openai
  model: gpt-4o
  max_tokens: 1000
  timeout: 30s
output:
  format: YAML
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, match.ModeFuzzy, cfg.Match.Mode)
	assert.Equal(t, match.PolicyAll, cfg.Match.ItemPolicy)
	assert.Equal(t, match.EmptyCovered, cfg.Match.EmptyLines)
	assert.InDelta(t, 0.4, cfg.Match.PartialThreshold, 1e-9)
	assert.InDelta(t, 0.8, cfg.Match.FullMatchThreshold, 1e-9)
	assert.Equal(t, "openai", cfg.Suggest.Provider)
	assert.Equal(t, "gpt-4o", cfg.Suggest.Model)
	assert.Equal(t, 1000, cfg.Suggest.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Suggest.Timeout)
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_ProfileSettingsAreDefaults(t *testing.T) {
	dir := isolate(t)

	path := writeConfig(t, dir, "strict.yaml", "profile: strict\n")
	cfg, err := Load(Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.Profile)
	assert.Equal(t, match.ModeExact, cfg.Match.Mode)
	assert.Equal(t, match.PolicyAll, cfg.Match.ItemPolicy)
	assert.True(t, cfg.Match.NumericDocumentCheck)

	// an explicit file setting beats the profile
	path = writeConfig(t, dir, "strict-fuzzy.yaml", "profile: strict\nmatch:\n  mode: fuzzy\n")
	cfg, err = Load(Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, match.ModeFuzzy, cfg.Match.Mode)
	assert.Equal(t, match.PolicyAll, cfg.Match.ItemPolicy)
}

func TestLoad_UnknownProfile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "c.yaml", "profile: nonexistent\n")

	_, err := Load(Options{Path: path})
	assert.ErrorContains(t, err, "unknown profile")
}

func TestLoad_InvalidMatchConfig(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "c.yaml", "match:\n  partial_threshold: 0.9\n  full_match_threshold: 0.5\n")

	_, err := Load(Options{Path: path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, match.ErrInvalidConfig))
	var ce *match.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "partial_threshold", ce.Field)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	dir := isolate(t)
	_, err := Load(Options{Path: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	userDir := filepath.Join(dir, "xdg", "rulecheck")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	writeConfig(t, userDir, "config.yaml", "output:\n  format: md\nsuggest:\n  model: user-model\n  max_tokens: 111\n")
	writeConfig(t, dir, ProjectConfigName, "suggest:\n  model: project-model\n")
	explicit := writeConfig(t, dir, "explicit.yaml", "suggest:\n  max_tokens: 333\n")

	t.Setenv("RULECHECK_MATCH_MODE", "substring")
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("mode", "", "")
	flags.String("format", "json", "")
	flags.Float64("partial-threshold", 0.5, "")
	require.NoError(t, flags.Parse([]string{"--mode", "exact"}))

	cfg, err := Load(Options{Path: explicit, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, "md", cfg.Output.Format, "user config applies when nothing overrides it")
	assert.Equal(t, "project-model", cfg.Suggest.Model, "project config beats user config")
	assert.Equal(t, 333, cfg.Suggest.MaxTokens, "explicit config beats user config")
	assert.Equal(t, match.ModeExact, cfg.Match.Mode, "changed flag beats env")
	assert.InDelta(t, match.DefaultPartialThreshold, cfg.Match.PartialThreshold, 1e-9, "unchanged flags do not override")
	assert.Equal(t, "env-key", cfg.Suggest.APIKey("anthropic"))
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("RULECHECK_MATCH_MODE", "fuzzy")
	t.Setenv("RULECHECK_MATCH_PARTIAL_THRESHOLD", "0.6")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, match.ModeFuzzy, cfg.Match.Mode)
	assert.InDelta(t, 0.6, cfg.Match.PartialThreshold, 1e-9)
}

func TestLoad_ExpandsAPIKeyReferences(t *testing.T) {
	dir := isolate(t)
	t.Setenv("MY_OPENAI_KEY", "sk-test")
	path := writeConfig(t, dir, "c.yaml", "suggest:\n  openai_api_key: ${MY_OPENAI_KEY}\n")

	cfg, err := Load(Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Suggest.APIKey("openai"))
	assert.Empty(t, cfg.Suggest.APIKey("google"))
}

func TestGetUserConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "rulecheck", "config.yaml"), GetUserConfigPath())
}
