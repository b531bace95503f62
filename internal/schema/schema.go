// Package schema defines all canonical data types for rulecheck: the check
// items extracted from text, per-line verdicts, the coverage report, and the
// output envelope written by the CLI.
package schema

// Verdict represents the overall coverage verdict of a report.
type Verdict string

const (
	VerdictCovered          Verdict = "COVERED"
	VerdictPartiallyCovered Verdict = "PARTIALLY_COVERED"
	VerdictNotCovered       Verdict = "NOT_COVERED"
)

// ItemKind classifies a CheckItem by the extraction pass that produced it.
type ItemKind string

const (
	KindNumeric ItemKind = "NUMERIC"
	KindWord    ItemKind = "WORD"
)

// Status is the coverage status of a rule line against a plan.
type Status string

const (
	StatusCovered       Status = "COVERED"
	StatusPartial       Status = "PARTIAL"
	StatusMissing       Status = "MISSING"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// ItemStatus is the match result of a single check item.
type ItemStatus string

const (
	ItemMatched ItemStatus = "MATCHED"
	ItemNear    ItemStatus = "NEAR"
	ItemMissing ItemStatus = "MISSING"
	// ItemIgnored marks an item that was extracted but not checked under the
	// active item policy.
	ItemIgnored ItemStatus = "IGNORED"
	// ItemText marks a highlight span that is not part of any item.
	ItemText ItemStatus = "TEXT"
)

// CheckItem is an atomic normalized token extracted from text.
// Start and End are byte offsets into the text the item was scanned from.
type CheckItem struct {
	Raw   string   `json:"raw" yaml:"raw"`
	Key   string   `json:"key" yaml:"key"`
	Kind  ItemKind `json:"kind" yaml:"kind"`
	Start int      `json:"start" yaml:"start"`
	End   int      `json:"end" yaml:"end"`
}

// RuleLine is one non-blank line of a rule document.
type RuleLine struct {
	ID     string      `json:"id" yaml:"id"`
	Number int         `json:"line" yaml:"line"`
	Text   string      `json:"text" yaml:"text"`
	Items  []CheckItem `json:"items" yaml:"items"`
}

// ItemResult records how one checked item fared against the plan.
type ItemResult struct {
	Item       CheckItem  `json:"item" yaml:"item"`
	Status     ItemStatus `json:"status" yaml:"status"`
	BestMatch  string     `json:"best_match,omitempty" yaml:"best_match,omitempty"`
	Similarity float64    `json:"similarity" yaml:"similarity"`
}

// LineVerdict is the result of comparing one RuleLine against a plan.
//
// Status is COVERED iff MissingItems is empty and MISSING iff nothing matched,
// no near match exists and the line as a whole resembles no plan line;
// anything in between is PARTIAL. NOT_APPLICABLE is only produced for lines
// without checked items when the empty-line policy asks for it.
//
// Near items are also listed in MissingItems: a near match is evidence, not
// coverage.
type LineVerdict struct {
	Line         RuleLine     `json:"rule_line" yaml:"rule_line"`
	Status       Status       `json:"status" yaml:"status"`
	Items        []ItemResult `json:"items" yaml:"items"`
	MatchedItems []string     `json:"matched_items" yaml:"matched_items"`
	MissingItems []string     `json:"missing_items" yaml:"missing_items"`
	NearItems    []string     `json:"near_items,omitempty" yaml:"near_items,omitempty"`
	// Similarity is the mean per-item score: 1 for a match, the best edit
	// similarity for a near or missing word, 0 for a missing number.
	Similarity float64 `json:"similarity" yaml:"similarity"`
	// LineSimilarity is the best whole-line similarity against any plan line.
	// Only computed in fuzzy mode.
	LineSimilarity float64 `json:"line_similarity,omitempty" yaml:"line_similarity,omitempty"`
}

// CoverageReport is the complete output of one analysis run.
type CoverageReport struct {
	Lines           []LineVerdict `json:"lines" yaml:"lines"`
	AllMissingItems []string      `json:"all_missing_items" yaml:"all_missing_items"`
}

// Span is one fragment of a highlighted rule line.
type Span struct {
	Text   string     `json:"text" yaml:"text"`
	Status ItemStatus `json:"status" yaml:"status"`
}

// SuggestionRequest is everything a suggestion generator receives. The set of
// fields is fixed; collaborators must not smuggle extra context elsewhere.
type SuggestionRequest struct {
	PlanText       string        `json:"plan_text" yaml:"plan_text"`
	MissingItems   []string      `json:"missing_items" yaml:"missing_items"`
	HistoryContext string        `json:"history_context,omitempty" yaml:"history_context,omitempty"`
	Lines          []LineVerdict `json:"lines" yaml:"lines"`
}

// Suggestion is one proposed test step for a missing item.
type Suggestion struct {
	Item      string `json:"item" yaml:"item"`
	TestStep  string `json:"test_step" yaml:"test_step"`
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Report is the top-level output document written by the CLI.
type Report struct {
	Tool        string          `json:"tool" yaml:"tool"`
	Version     string          `json:"version" yaml:"version"`
	Input       Input           `json:"input" yaml:"input"`
	Summary     Summary         `json:"summary" yaml:"summary"`
	Coverage    *CoverageReport `json:"coverage" yaml:"coverage"`
	Suggestions []Suggestion    `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Meta        Meta            `json:"meta" yaml:"meta"`
}

// Input records the parameters used for this run.
type Input struct {
	RuleFile             string  `json:"rule_file" yaml:"rule_file"`
	PlanFile             string  `json:"plan_file" yaml:"plan_file"`
	Profile              string  `json:"profile" yaml:"profile"`
	Mode                 string  `json:"mode" yaml:"mode"`
	ItemPolicy           string  `json:"item_policy" yaml:"item_policy"`
	EmptyLines           string  `json:"empty_lines" yaml:"empty_lines"`
	PartialThreshold     float64 `json:"partial_threshold" yaml:"partial_threshold"`
	FullMatchThreshold   float64 `json:"full_match_threshold" yaml:"full_match_threshold"`
	NumericDocumentCheck bool    `json:"numeric_document_check" yaml:"numeric_document_check"`
}

// Summary holds the computed verdict and per-status line counts.
type Summary struct {
	Verdict       Verdict `json:"verdict" yaml:"verdict"`
	Score         int     `json:"score" yaml:"score"`
	CoveredCount  int     `json:"covered_count" yaml:"covered_count"`
	PartialCount  int     `json:"partial_count" yaml:"partial_count"`
	MissingCount  int     `json:"missing_count" yaml:"missing_count"`
	NotApplicable int     `json:"not_applicable_count" yaml:"not_applicable_count"`
}

// Meta records run metadata and, when suggestions were requested, the model
// that produced them.
type Meta struct {
	RunID           string `json:"run_id" yaml:"run_id"`
	Model           string `json:"model,omitempty" yaml:"model,omitempty"`
	SuggestionError string `json:"suggestion_error,omitempty" yaml:"suggestion_error,omitempty"`
}

// BatchReport is the output of checking many rule files against one plan.
type BatchReport struct {
	Tool     string       `json:"tool" yaml:"tool"`
	Version  string       `json:"version" yaml:"version"`
	PlanFile string       `json:"plan_file" yaml:"plan_file"`
	Profile  string       `json:"profile" yaml:"profile"`
	Entries  []BatchEntry `json:"entries" yaml:"entries"`
	Meta     Meta         `json:"meta" yaml:"meta"`
}

// BatchEntry is one rule file's result within a batch. Error is set, and
// Summary left zero, when the rule file could not be analyzed.
type BatchEntry struct {
	RuleFile     string   `json:"rule_file" yaml:"rule_file"`
	Summary      Summary  `json:"summary" yaml:"summary"`
	MissingItems []string `json:"missing_items" yaml:"missing_items"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
}
