// Package suggest turns the missing items of a coverage report into proposed
// test steps. It handles LLM provider communication, prompt construction,
// response validation, and the single repair attempt.
//
// Nothing in this package influences coverage: suggestions are advisory and a
// failed call never invalidates an analysis.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/rulecheck/internal/profile"
	"github.com/dshills/rulecheck/internal/schema"
	"github.com/dshills/rulecheck/internal/tokenize"
)

// ErrServiceUnavailable is returned when the provider cannot be created or a
// call to it fails. The caller should exit with code 4 when suggestions are
// required.
var ErrServiceUnavailable = errors.New("suggest: suggestion service unavailable")

// ErrInvalidModelOutput is returned when both the initial and repair LLM
// responses fail validation. The caller should exit with code 5 when
// suggestions are required.
var ErrInvalidModelOutput = errors.New("suggest: invalid model output after repair attempt")

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// NewProvider is the factory for creating LLM providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call site.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(providerName, model, apiKey string) (Provider, error) = defaultNewProvider

// Options configures a Generate call.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	// Logger receives prompts at debug level and validation problems at
	// warn level. Nil means no logging.
	Logger *zap.Logger
}

// ValidationError records a single validation failure on an LLM response.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Generate builds a prompt from req, calls the LLM, validates the response,
// and performs one repair attempt if validation fails. A request without
// missing items needs no suggestions and makes no provider call.
func Generate(ctx context.Context, req schema.SuggestionRequest, prof profile.Profile, opts Options) ([]schema.Suggestion, error) {
	if len(req.MissingItems) == 0 {
		return nil, nil
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	provider, err := NewProvider(opts.Provider, opts.Model, opts.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: create provider: %w", ErrServiceUnavailable, err)
	}

	sysPrompt := buildSystemPrompt(prof)
	userPrompt := buildUserPrompt(req)
	log.Debug("suggest: prompts built",
		zap.String("provider", opts.Provider),
		zap.String("model", opts.Model),
		zap.String("system_prompt", sysPrompt),
		zap.String("user_prompt", userPrompt),
	)

	raw, err := provider.Complete(ctx, sysPrompt, userPrompt, opts.MaxTokens, opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: complete: %w", ErrServiceUnavailable, err)
	}

	suggestions, validationErrs := ValidateResponse(raw, req.MissingItems)
	if suggestions != nil && !needsRepair(validationErrs) {
		logValidation(log, validationErrs)
		return suggestions, nil
	}

	// One repair attempt: include the original prompt and the invalid response
	// so the LLM has full context.
	log.Warn("suggest: invalid model output, attempting repair", zap.Int("errors", len(validationErrs)))
	repairPrompt := buildRepairPrompt(userPrompt, raw, validationErrs)
	raw2, err := provider.Complete(ctx, sysPrompt, repairPrompt, opts.MaxTokens, opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: repair complete: %w", ErrServiceUnavailable, err)
	}

	suggestions2, validationErrs2 := ValidateResponse(raw2, req.MissingItems)
	if suggestions2 != nil && !needsRepair(validationErrs2) {
		logValidation(log, validationErrs2)
		return suggestions2, nil
	}

	return nil, ErrInvalidModelOutput
}

func logValidation(log *zap.Logger, errs []ValidationError) {
	for _, e := range errs {
		log.Warn("suggest: dropped suggestion", zap.String("field", e.Field), zap.String("reason", e.Message))
	}
}

// needsRepair returns true when validation errors include a parse or
// required-field failure that requires a retry.
func needsRepair(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Field == "json_parse" || e.Field == "required_field" {
			return true
		}
	}
	return false
}

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line (no closing fence required).
// Used to strip orphaned opening fences from truncated responses.
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes leading/trailing markdown code fences that LLMs
// sometimes wrap around JSON output (e.g., "```json\n...\n```").
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// invalidJSONEscapeRe matches a backslash followed by any character that is not
// a valid JSON string escape character ("\/bfnrtu).
var invalidJSONEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// fixInvalidJSONEscapes replaces invalid JSON escape sequences in s with their
// correctly double-escaped equivalents.
func fixInvalidJSONEscapes(s string) string {
	return invalidJSONEscapeRe.ReplaceAllString(s, `\\$1`)
}

// response is the JSON document the model is asked to produce.
type response struct {
	Suggestions []schema.Suggestion `json:"suggestions"`
}

// ValidateResponse parses and validates the raw LLM response against the
// missing-item catalog. Leading/trailing markdown fences are stripped before
// parsing. Suggestions with an empty item or test step, or whose item is not
// in the catalog, are dropped and recorded as non-fatal ValidationErrors; an
// item is matched by its normalized key, so "-40C" names catalog item "-40c".
// Fatal issues (parse failure, missing suggestions array) return a nil slice.
func ValidateResponse(raw string, catalog []string) ([]schema.Suggestion, []ValidationError) {
	var errs []ValidationError

	raw = stripMarkdownFences(raw)

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		fixed := fixInvalidJSONEscapes(raw)
		if err2 := json.Unmarshal([]byte(fixed), &resp); err2 != nil {
			errs = append(errs, ValidationError{
				Field:   "json_parse",
				Message: err.Error(),
			})
			return nil, errs
		}
	}

	if resp.Suggestions == nil {
		errs = append(errs, ValidationError{
			Field:   "required_field",
			Message: "suggestions is missing",
		})
		return nil, errs
	}

	known := make(map[string]bool, len(catalog))
	for _, key := range catalog {
		known[key] = true
	}

	out := make([]schema.Suggestion, 0, len(resp.Suggestions))
	for i, s := range resp.Suggestions {
		field := fmt.Sprintf("suggestions[%d]", i)
		key := tokenize.NormalizeToken(s.Item)
		switch {
		case strings.TrimSpace(s.TestStep) == "":
			errs = append(errs, ValidationError{Field: field + ".test_step", Message: "test_step is empty"})
		case key == "":
			errs = append(errs, ValidationError{Field: field + ".item", Message: "item is empty"})
		case !known[key]:
			errs = append(errs, ValidationError{
				Field:   field + ".item",
				Message: fmt.Sprintf("item %q is not a missing item; suggestion dropped", s.Item),
			})
		default:
			s.Item = key
			s.TestStep = strings.TrimSpace(s.TestStep)
			s.Rationale = strings.TrimSpace(s.Rationale)
			out = append(out, s)
		}
	}
	return out, errs
}

// buildSystemPrompt assembles the LLM system prompt.
func buildSystemPrompt(prof profile.Profile) string {
	var sb strings.Builder

	sb.WriteString("You are rulecheck, a test-plan assistant for engineering requirement checks.\n\n")

	sb.WriteString("Output ONLY valid JSON conforming to the schema below. " +
		"No prose, no markdown, no explanation outside the JSON.\n\n")

	sb.WriteString("Propose test steps only for items listed under MISSING ITEMS. " +
		"Use each item exactly as listed in the item field. " +
		"Never invent requirements that are not in the rule lines.\n\n")

	if prof.SystemPromptAddendum != "" {
		sb.WriteString(prof.SystemPromptAddendum)
		sb.WriteString("\n\n")
	}

	sb.WriteString(outputSchema)

	return sb.String()
}

// outputSchema is the JSON schema fragment shown to the LLM.
const outputSchema = `Output schema (JSON only):
{
  "suggestions": [
    {
      "item": "-40c",
      "test_step": "Soak the unit at -40 C for 24 h, then verify ...",
      "rationale": "why this step covers the item"
    }
  ]
}
`

// buildUserPrompt assembles the LLM user prompt.
func buildUserPrompt(req schema.SuggestionRequest) string {
	var sb strings.Builder

	sb.WriteString("RULE LINES NOT FULLY COVERED:\n")
	for _, v := range req.Lines {
		fmt.Fprintf(&sb, "  %s (line %d, %s): %s\n", v.Line.ID, v.Line.Number, v.Status, v.Line.Text)
		if len(v.MissingItems) > 0 {
			fmt.Fprintf(&sb, "    missing: %s\n", strings.Join(v.MissingItems, ", "))
		}
	}

	sb.WriteString("\nMISSING ITEMS:\n")
	for _, item := range req.MissingItems {
		fmt.Fprintf(&sb, "  - %s\n", item)
	}

	sb.WriteString("\nCURRENT TEST PLAN:\n")
	sb.WriteString(req.PlanText)
	if !strings.HasSuffix(req.PlanText, "\n") {
		sb.WriteString("\n")
	}

	if req.HistoryContext != "" {
		sb.WriteString("\nPRIOR ANALYSES:\n")
		sb.WriteString(req.HistoryContext)
		sb.WriteString("\n")
	}

	sb.WriteString("\nProduce the JSON suggestions now.")

	return sb.String()
}

// buildRepairPrompt constructs the repair message. It includes the original
// user prompt and the previous invalid response so the LLM has full context.
func buildRepairPrompt(originalUserPrompt, previousResponse string, errs []ValidationError) string {
	var sb strings.Builder
	sb.WriteString(originalUserPrompt)
	sb.WriteString("\n\nYour previous response was:\n")
	sb.WriteString(previousResponse)
	sb.WriteString("\n\nThat response was invalid. Errors:\n")
	for _, e := range errs {
		fmt.Fprintf(&sb, "  - %s\n", e.Error())
	}
	sb.WriteString("\nPlease output only the corrected JSON conforming to the schema. Do not repeat the error.")
	return sb.String()
}
