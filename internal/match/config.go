package match

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig is the sentinel wrapped by every *ConfigError.
var ErrInvalidConfig = errors.New("match: invalid config")

// Mode selects how a rule item is looked up in the plan.
type Mode string

const (
	// ModeSubstring matches when the raw item text occurs anywhere in the plan.
	ModeSubstring Mode = "SUBSTRING"
	// ModeExact matches raw tokens case-insensitively, without normalization.
	ModeExact Mode = "EXACT"
	// ModeNormalized matches normalized keys. This is the default.
	ModeNormalized Mode = "NORMALIZED"
	// ModeFuzzy is ModeNormalized plus edit-similarity near matches for words.
	ModeFuzzy Mode = "FUZZY"
)

// ItemPolicy selects which extracted items of a line are checked.
type ItemPolicy string

const (
	// PolicyNumericFirst checks only the numeric items of a line when it has
	// any, and its word items otherwise.
	PolicyNumericFirst ItemPolicy = "NUMERIC_FIRST"
	// PolicyAll checks every item.
	PolicyAll ItemPolicy = "ALL"
)

// EmptyLinePolicy decides the status of a line with no checked items.
type EmptyLinePolicy string

const (
	// EmptyCovered treats such lines as vacuously covered.
	EmptyCovered EmptyLinePolicy = "COVERED"
	// EmptyNotApplicable reports them as NOT_APPLICABLE.
	EmptyNotApplicable EmptyLinePolicy = "NOT_APPLICABLE"
)

// Default thresholds.
const (
	DefaultPartialThreshold   = 0.5
	DefaultFullMatchThreshold = 0.7
)

// Config is the complete matching configuration of one analysis run.
type Config struct {
	Mode                 Mode            `mapstructure:"mode"`
	ItemPolicy           ItemPolicy      `mapstructure:"item_policy"`
	EmptyLines           EmptyLinePolicy `mapstructure:"empty_lines"`
	PartialThreshold     float64         `mapstructure:"partial_threshold"`
	FullMatchThreshold   float64         `mapstructure:"full_match_threshold"`
	NumericDocumentCheck bool            `mapstructure:"numeric_document_check"`
}

// DefaultConfig returns normalized matching with the default thresholds.
func DefaultConfig() Config {
	return Config{
		Mode:               ModeNormalized,
		ItemPolicy:         PolicyNumericFirst,
		EmptyLines:         EmptyCovered,
		PartialThreshold:   DefaultPartialThreshold,
		FullMatchThreshold: DefaultFullMatchThreshold,
	}
}

// FuzzyEnabled reports whether near matches are computed.
func (c Config) FuzzyEnabled() bool {
	return c.Mode == ModeFuzzy
}

// WithDefaults fills empty enum fields with their defaults. Thresholds are
// left alone: zero is a valid threshold.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.ItemPolicy == "" {
		c.ItemPolicy = d.ItemPolicy
	}
	if c.EmptyLines == "" {
		c.EmptyLines = d.EmptyLines
	}
	return c
}

// ConfigError describes one invalid configuration field.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("match: invalid config: %s=%s: %s", e.Field, e.Value, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidConfig) hold for every ConfigError.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks enum values, which must be in canonical form (see
// Normalize), and thresholds. Thresholds must lie in [0, 1]
// and PartialThreshold must not exceed FullMatchThreshold.
func (c Config) Validate() error {
	if m, err := ParseMode(string(c.Mode)); err != nil || m != c.Mode {
		return &ConfigError{Field: "mode", Value: string(c.Mode), Reason: "unknown mode"}
	}
	if p, err := ParseItemPolicy(string(c.ItemPolicy)); err != nil || p != c.ItemPolicy {
		return &ConfigError{Field: "item_policy", Value: string(c.ItemPolicy), Reason: "unknown item policy"}
	}
	if p, err := ParseEmptyLinePolicy(string(c.EmptyLines)); err != nil || p != c.EmptyLines {
		return &ConfigError{Field: "empty_lines", Value: string(c.EmptyLines), Reason: "unknown empty-line policy"}
	}
	if !unitInterval(c.PartialThreshold) {
		return &ConfigError{Field: "partial_threshold", Value: formatFloat(c.PartialThreshold), Reason: "must be within [0, 1]"}
	}
	if !unitInterval(c.FullMatchThreshold) {
		return &ConfigError{Field: "full_match_threshold", Value: formatFloat(c.FullMatchThreshold), Reason: "must be within [0, 1]"}
	}
	if c.PartialThreshold > c.FullMatchThreshold {
		return &ConfigError{
			Field:  "partial_threshold",
			Value:  formatFloat(c.PartialThreshold),
			Reason: fmt.Sprintf("must not exceed full_match_threshold (%s)", formatFloat(c.FullMatchThreshold)),
		}
	}
	return nil
}

// Normalize converts the enum fields of c to their canonical form, so a
// config written as "mode: fuzzy" matches ModeFuzzy. Unknown values are left
// as they are for Validate to report.
func (c Config) Normalize() Config {
	if m, err := ParseMode(string(c.Mode)); err == nil {
		c.Mode = m
	}
	if p, err := ParseItemPolicy(string(c.ItemPolicy)); err == nil {
		c.ItemPolicy = p
	}
	if p, err := ParseEmptyLinePolicy(string(c.EmptyLines)); err == nil {
		c.EmptyLines = p
	}
	return c
}

// ParseMode converts a case-insensitive name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeSubstring, ModeExact, ModeNormalized, ModeFuzzy:
		return m, nil
	}
	return "", fmt.Errorf("match: unknown mode %q (available: substring, exact, normalized, fuzzy)", s)
}

// ParseItemPolicy converts a case-insensitive name to an ItemPolicy.
// Hyphens are accepted in place of underscores ("numeric-first").
func ParseItemPolicy(s string) (ItemPolicy, error) {
	switch p := ItemPolicy(enumName(s)); p {
	case PolicyNumericFirst, PolicyAll:
		return p, nil
	}
	return "", fmt.Errorf("match: unknown item policy %q (available: numeric-first, all)", s)
}

// ParseEmptyLinePolicy converts a case-insensitive name to an EmptyLinePolicy.
func ParseEmptyLinePolicy(s string) (EmptyLinePolicy, error) {
	switch p := EmptyLinePolicy(enumName(s)); p {
	case EmptyCovered, EmptyNotApplicable:
		return p, nil
	}
	return "", fmt.Errorf("match: unknown empty-line policy %q (available: covered, not-applicable)", s)
}

func enumName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}

func unitInterval(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
