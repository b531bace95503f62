package match

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/rulecheck/internal/plan"
	"github.com/dshills/rulecheck/internal/schema"
	"github.com/dshills/rulecheck/internal/tokenize"
)

func ruleLine(text string) schema.RuleLine {
	return schema.RuleLine{ID: "RULE-001", Number: 1, Text: text, Items: tokenize.Scan(text)}
}

func fuzzy() Config {
	c := DefaultConfig()
	c.Mode = ModeFuzzy
	return c
}

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name        string
		rule        string
		plan        string
		cfg         Config
		wantStatus  schema.Status
		wantMissing []string
	}{
		{
			name:        "signed temperatures",
			rule:        "Operating temperature: -30C to 55C",
			plan:        "Test at -30C and +55C, verify operation.",
			cfg:         DefaultConfig(),
			wantStatus:  schema.StatusCovered,
			wantMissing: []string{},
		},
		{
			name:        "hyphenated modulation",
			rule:        "Modulation: 256-QAM required",
			plan:        "We will test 256QAM modulation",
			cfg:         DefaultConfig(),
			wantStatus:  schema.StatusCovered,
			wantMissing: []string{},
		},
		{
			name:        "cold storage not planned",
			rule:        "Verify -40C storage limit",
			plan:        "No cold temperature test planned",
			cfg:         DefaultConfig(),
			wantStatus:  schema.StatusMissing,
			wantMissing: []string{"-40c"},
		},
		{
			name:        "unsigned plan value is a different number",
			rule:        "Verify -40C storage limit",
			plan:        "Storage at 40C",
			cfg:         DefaultConfig(),
			wantStatus:  schema.StatusMissing,
			wantMissing: []string{"-40c"},
		},
		{
			name:        "one of two numbers",
			rule:        "Operating temperature: -30C to 55C",
			plan:        "Hot soak at 55 C only",
			cfg:         DefaultConfig(),
			wantStatus:  schema.StatusPartial,
			wantMissing: []string{"-30c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(ruleLine(tt.rule), plan.Build(tt.plan), tt.cfg)
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.wantMissing, got.MissingItems); diff != "" {
				t.Errorf("MissingItems mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateFuzzyTypo(t *testing.T) {
	line := ruleLine("Check frequency stability")
	ts := plan.Build("Frequency stabilty test included")

	got := Evaluate(line, ts, fuzzy())
	if got.Status != schema.StatusPartial {
		t.Fatalf("Status = %s, want PARTIAL", got.Status)
	}
	if diff := cmp.Diff([]string{"frequency"}, got.MatchedItems); diff != "" {
		t.Errorf("MatchedItems mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"stability"}, got.NearItems); diff != "" {
		t.Errorf("NearItems mismatch (-want +got):\n%s", diff)
	}
	for _, r := range got.Items {
		if r.Item.Key != "stability" {
			continue
		}
		if r.Status != schema.ItemNear || r.BestMatch != "stabilty" {
			t.Errorf("stability = %s via %q, want NEAR via stabilty", r.Status, r.BestMatch)
		}
		if r.Similarity < DefaultPartialThreshold {
			t.Errorf("Similarity = %f, want >= %f", r.Similarity, DefaultPartialThreshold)
		}
	}
	if got.LineSimilarity <= 0 {
		t.Errorf("LineSimilarity = %f, want > 0 in fuzzy mode", got.LineSimilarity)
	}
}

func TestEvaluateNormalizedHasNoNearMatches(t *testing.T) {
	got := Evaluate(ruleLine("stability"), plan.Build("stabilty"), DefaultConfig())
	if got.Status != schema.StatusMissing {
		t.Errorf("Status = %s, want MISSING", got.Status)
	}
	if len(got.NearItems) != 0 || got.LineSimilarity != 0 {
		t.Errorf("near data computed outside fuzzy mode: %+v", got)
	}
}

func TestEvaluateExactWinsOverNear(t *testing.T) {
	got := Evaluate(ruleLine("stability"), plan.Build("stabilty and stability"), fuzzy())
	if got.Status != schema.StatusCovered {
		t.Fatalf("Status = %s, want COVERED", got.Status)
	}
	r := got.Items[0]
	if r.Status != schema.ItemMatched || r.BestMatch != "stability" || r.Similarity != 1 {
		t.Errorf("item = %+v, want exact match", r)
	}
}

func TestEvaluateNumbersAreNeverFuzzy(t *testing.T) {
	got := Evaluate(ruleLine("Verify -40C storage limit"), plan.Build("Verify -41C storage limit"), fuzzy())
	if got.Status != schema.StatusMissing {
		t.Errorf("Status = %s, want MISSING", got.Status)
	}
	if len(got.NearItems) != 0 {
		t.Errorf("NearItems = %v, want none", got.NearItems)
	}
}

func TestEvaluateItemPolicy(t *testing.T) {
	line := ruleLine("Verify -40C storage limit")
	ts := plan.Build("verify the storage limit")

	got := Evaluate(line, ts, DefaultConfig())
	if got.Status != schema.StatusMissing {
		t.Errorf("numeric-first: Status = %s, want MISSING", got.Status)
	}
	ignored := 0
	for _, r := range got.Items {
		if r.Status == schema.ItemIgnored {
			ignored++
		}
	}
	if ignored != 3 {
		t.Errorf("numeric-first: %d ignored items, want 3", ignored)
	}

	all := DefaultConfig()
	all.ItemPolicy = PolicyAll
	got = Evaluate(line, ts, all)
	if got.Status != schema.StatusPartial {
		t.Errorf("all: Status = %s, want PARTIAL", got.Status)
	}
	if diff := cmp.Diff([]string{"verify", "storage", "limit"}, got.MatchedItems); diff != "" {
		t.Errorf("all: MatchedItems mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateWordsCheckedWithoutNumbers(t *testing.T) {
	got := Evaluate(ruleLine("Check frequency stability"), plan.Build("check frequency stability"), DefaultConfig())
	if got.Status != schema.StatusCovered {
		t.Errorf("Status = %s, want COVERED", got.Status)
	}
	if len(got.MatchedItems) != 3 {
		t.Errorf("MatchedItems = %v, want 3 items", got.MatchedItems)
	}
}

func TestEvaluateDuplicateItemsCheckedOnce(t *testing.T) {
	got := Evaluate(ruleLine("25C then 25 °C then 25.0c"), plan.Build("nothing"), DefaultConfig())
	if diff := cmp.Diff([]string{"25c"}, got.MissingItems); diff != "" {
		t.Errorf("MissingItems mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateEmptyLine(t *testing.T) {
	line := schema.RuleLine{ID: "RULE-001", Number: 1, Text: "a"}
	ts := plan.Build("anything")

	if got := Evaluate(line, ts, DefaultConfig()); got.Status != schema.StatusCovered {
		t.Errorf("default policy: Status = %s, want COVERED", got.Status)
	}

	cfg := DefaultConfig()
	cfg.EmptyLines = EmptyNotApplicable
	got := Evaluate(line, ts, cfg)
	if got.Status != schema.StatusNotApplicable {
		t.Errorf("not-applicable policy: Status = %s, want NOT_APPLICABLE", got.Status)
	}
	if got.MissingItems == nil || got.MatchedItems == nil {
		t.Error("item lists must be empty, not nil")
	}
}

func TestEvaluateModes(t *testing.T) {
	line := ruleLine("Modulation: 256-QAM required")
	ts := plan.Build("We will test 256QAM modulation")

	tests := []struct {
		mode Mode
		want schema.Status
	}{
		{ModeExact, schema.StatusMissing},
		{ModeSubstring, schema.StatusMissing},
		{ModeNormalized, schema.StatusCovered},
		{ModeFuzzy, schema.StatusCovered},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Mode = tt.mode
		if got := Evaluate(line, ts, cfg); got.Status != tt.want {
			t.Errorf("mode %s: Status = %s, want %s", tt.mode, got.Status, tt.want)
		}
	}

	exact := DefaultConfig()
	exact.Mode = ModeExact
	if got := Evaluate(line, plan.Build("we run 256-qam"), exact); got.Status != schema.StatusCovered {
		t.Errorf("exact with identical raw token: Status = %s, want COVERED", got.Status)
	}
}

func TestEvaluateNumericDocumentCheck(t *testing.T) {
	line := ruleLine("Hold at 5C")
	ts := plan.Build("Hold at 25C")

	cfg := DefaultConfig()
	cfg.Mode = ModeSubstring
	if got := Evaluate(line, ts, cfg); got.Status != schema.StatusCovered {
		t.Fatalf("substring without check: Status = %s, want COVERED", got.Status)
	}

	cfg.NumericDocumentCheck = true
	got := Evaluate(line, ts, cfg)
	if got.Status != schema.StatusMissing {
		t.Errorf("substring with check: Status = %s, want MISSING", got.Status)
	}
	if diff := cmp.Diff([]string{"5c"}, got.MissingItems); diff != "" {
		t.Errorf("MissingItems mismatch (-want +got):\n%s", diff)
	}
}

var statusRank = map[schema.Status]int{
	schema.StatusMissing: 0,
	schema.StatusPartial: 1,
	schema.StatusCovered: 2,
}

func TestEvaluateMonotonicInPlan(t *testing.T) {
	rules := []string{
		"Operating temperature: -30C to 55C",
		"Verify -40C storage limit",
		"Check frequency stability",
		"Modulation: 256-QAM required",
	}
	plans := []string{
		"",
		"Test at -30C",
		"Frequency stabilty test included",
	}
	extra := "\nSoak at -40C, 55C and check stability of 256QAM"

	for _, mode := range []Mode{ModeSubstring, ModeExact, ModeNormalized, ModeFuzzy} {
		cfg := DefaultConfig()
		cfg.Mode = mode
		for _, r := range rules {
			for _, p := range plans {
				before := Evaluate(ruleLine(r), plan.Build(p), cfg)
				after := Evaluate(ruleLine(r), plan.Build(p+extra), cfg)
				if statusRank[after.Status] < statusRank[before.Status] {
					t.Errorf("%s: %q got worse after adding text to %q: %s -> %s",
						mode, r, p, before.Status, after.Status)
				}
			}
		}
	}
}

func TestEvaluatePartialInvariant(t *testing.T) {
	for _, mode := range []Mode{ModeSubstring, ModeExact, ModeNormalized, ModeFuzzy} {
		cfg := DefaultConfig()
		cfg.Mode = mode
		cfg.ItemPolicy = PolicyAll
		got := Evaluate(ruleLine("Verify -40C storage limit"), plan.Build("storage"), cfg)
		if got.Status != schema.StatusPartial {
			t.Errorf("%s: Status = %s, want PARTIAL when some items match", mode, got.Status)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "xyz", 0},
		{"stability", "stabilty", 1 - 1.0/9},
		{"abc", "", 0},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
		if got, rev := Similarity(tt.a, tt.b), Similarity(tt.b, tt.a); got != rev {
			t.Errorf("Similarity not symmetric for %q, %q", tt.a, tt.b)
		}
	}
}

func TestBestWordTieKeepsFirst(t *testing.T) {
	best, ratio := bestWord("cat", []string{"bat", "cot", "hat"})
	if best != "bat" {
		t.Errorf("best = %q, want bat", best)
	}
	if math.Abs(ratio-2.0/3) > 1e-9 {
		t.Errorf("ratio = %f, want 2/3", ratio)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "LOOSE" }, "mode"},
		{"unknown policy", func(c *Config) { c.ItemPolicy = "SOME" }, "item_policy"},
		{"unknown empty policy", func(c *Config) { c.EmptyLines = "SKIP" }, "empty_lines"},
		{"partial above one", func(c *Config) { c.PartialThreshold = 1.5 }, "partial_threshold"},
		{"full negative", func(c *Config) { c.FullMatchThreshold = -0.1 }, "full_match_threshold"},
		{"partial NaN", func(c *Config) { c.PartialThreshold = math.NaN() }, "partial_threshold"},
		{"partial above full", func(c *Config) { c.PartialThreshold, c.FullMatchThreshold = 0.9, 0.8 }, "partial_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %T, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestConfigBoundaryThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PartialThreshold, cfg.FullMatchThreshold = 0, 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("thresholds 0 and 1 should be valid: %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	got := Config{PartialThreshold: 0.3, FullMatchThreshold: 0.6}.WithDefaults()
	want := Config{
		Mode:               ModeNormalized,
		ItemPolicy:         PolicyNumericFirst,
		EmptyLines:         EmptyCovered,
		PartialThreshold:   0.3,
		FullMatchThreshold: 0.6,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WithDefaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEnums(t *testing.T) {
	if m, err := ParseMode(" fuzzy "); err != nil || m != ModeFuzzy {
		t.Errorf("ParseMode(fuzzy) = %q, %v", m, err)
	}
	if _, err := ParseMode("loose"); err == nil {
		t.Error("ParseMode(loose) should fail")
	}
	if p, err := ParseItemPolicy("numeric-first"); err != nil || p != PolicyNumericFirst {
		t.Errorf("ParseItemPolicy(numeric-first) = %q, %v", p, err)
	}
	if p, err := ParseEmptyLinePolicy("not_applicable"); err != nil || p != EmptyNotApplicable {
		t.Errorf("ParseEmptyLinePolicy(not_applicable) = %q, %v", p, err)
	}
}

func TestNormalize(t *testing.T) {
	c := DefaultConfig()
	c.Mode = "fuzzy"
	c.ItemPolicy = "all"
	c.EmptyLines = "not-applicable"

	got := c.Normalize()
	if got.Mode != ModeFuzzy || got.ItemPolicy != PolicyAll || got.EmptyLines != EmptyNotApplicable {
		t.Errorf("Normalize() = %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("normalized config should validate: %v", err)
	}
	if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("non-canonical enums should not validate, got %v", err)
	}

	c.Mode = "loose"
	if got := c.Normalize(); got.Mode != "loose" {
		t.Errorf("unknown mode rewritten to %q", got.Mode)
	}
}
