// Package profile defines named analysis profiles. Each profile adjusts the
// matching configuration for a family of rule documents and provides a
// SystemPromptAddendum that is appended to the system prompt sent to the LLM
// when suggestions are requested.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/rulecheck/internal/match"
)

// Profile describes an analysis strategy.
type Profile struct {
	Name                 string
	Description          string
	SystemPromptAddendum string
	// Match holds the matching settings this profile changes. Zero fields
	// leave the underlying configuration untouched.
	Match Overlay
}

// Overlay is a partial match.Config.
type Overlay struct {
	Mode                 match.Mode
	ItemPolicy           match.ItemPolicy
	EmptyLines           match.EmptyLinePolicy
	PartialThreshold     float64
	FullMatchThreshold   float64
	NumericDocumentCheck bool
}

// Apply returns cfg with the overlay's non-zero fields set.
func (o Overlay) Apply(cfg match.Config) match.Config {
	if o.Mode != "" {
		cfg.Mode = o.Mode
	}
	if o.ItemPolicy != "" {
		cfg.ItemPolicy = o.ItemPolicy
	}
	if o.EmptyLines != "" {
		cfg.EmptyLines = o.EmptyLines
	}
	if o.PartialThreshold > 0 {
		cfg.PartialThreshold = o.PartialThreshold
	}
	if o.FullMatchThreshold > 0 {
		cfg.FullMatchThreshold = o.FullMatchThreshold
	}
	if o.NumericDocumentCheck {
		cfg.NumericDocumentCheck = true
	}
	return cfg
}

// Config returns the default matching configuration with this profile applied.
func (p Profile) Config() match.Config {
	return p.Match.Apply(match.DefaultConfig())
}

// builtins is the registry of built-in profiles keyed by name.
var builtins = map[string]Profile{
	"general": {
		Name:        "general",
		Description: "Default profile; normalized matching, numbers checked before words.",
		SystemPromptAddendum: "Propose concise, verifiable test steps. Each step must state the " +
			"stimulus or condition and the pass criterion.",
	},
	"rf": {
		Name:        "rf",
		Description: "RF and communications checks; tolerates spelling slips in keywords.",
		SystemPromptAddendum: "The rules describe RF and communications requirements. Test steps " +
			"should name the measurement instrument class (spectrum analyzer, signal generator, " +
			"power meter), the frequency or channel, the modulation format and the acceptance limit " +
			"in the same unit as the rule.",
		Match: Overlay{
			Mode:             match.ModeFuzzy,
			PartialThreshold: 0.6,
		},
	},
	"environmental": {
		Name:        "environmental",
		Description: "Environmental qualification; every number in a rule must appear in the plan.",
		SystemPromptAddendum: "The rules describe environmental qualification limits. Test steps " +
			"should state the chamber setpoint, dwell time, ramp rate where relevant, and the " +
			"functional check performed at the limit. Keep the sign of every temperature.",
		Match: Overlay{
			NumericDocumentCheck: true,
			EmptyLines:           match.EmptyNotApplicable,
		},
	},
	"strict": {
		Name:        "strict",
		Description: "Strict checking; raw tokens, every item checked, no vacuous coverage.",
		SystemPromptAddendum: "Strict mode is active. Quote every missing item verbatim in the test " +
			"step. Do not merge items into one step and do not propose steps for items that are " +
			"not listed as missing.",
		Match: Overlay{
			Mode:                 match.ModeExact,
			ItemPolicy:           match.PolicyAll,
			EmptyLines:           match.EmptyNotApplicable,
			NumericDocumentCheck: true,
		},
	},
}

// Names returns the built-in profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns the named built-in profile or an error if the name is unknown.
func Load(name string) (Profile, error) {
	p, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}
