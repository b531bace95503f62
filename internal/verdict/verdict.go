// Package verdict provides deterministic local logic for scoring and verdict
// determination. No LLM calls are made here.
package verdict

import (
	"fmt"
	"math"
	"strings"

	"github.com/dshills/rulecheck/internal/coverage"
	"github.com/dshills/rulecheck/internal/schema"
)

// ComputeScore calculates the coverage score from line counts:
// 100 × (covered + ½·partial) / applicable, rounded to the nearest integer and
// clamped to [0, 100]. A report without applicable lines scores 100.
func ComputeScore(c coverage.Counts) int {
	applicable := c.Applicable()
	if applicable == 0 {
		return 100
	}
	score := int(math.Round(100 * (float64(c.Covered) + 0.5*float64(c.Partial)) / float64(applicable)))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Ordinal returns the numeric ordinal for a verdict, used to compare severity
// order. COVERED=0, PARTIALLY_COVERED=1, NOT_COVERED=2.
// Used by --fail-on comparison: exit 2 if Ordinal(actual) >= Ordinal(threshold).
func Ordinal(v schema.Verdict) int {
	switch v {
	case schema.VerdictCovered:
		return 0
	case schema.VerdictPartiallyCovered:
		return 1
	case schema.VerdictNotCovered:
		return 2
	default:
		return -1
	}
}

// ParseVerdict converts a case-insensitive verdict name ("not-covered" or
// "NOT_COVERED") to a Verdict.
func ParseVerdict(s string) (schema.Verdict, error) {
	v := schema.Verdict(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	if Ordinal(v) < 0 {
		return "", fmt.Errorf("verdict: unknown verdict %q (available: COVERED, PARTIALLY_COVERED, NOT_COVERED)", s)
	}
	return v, nil
}

// Determine applies the verdict rules to line counts.
//
// Rules (in order of precedence):
//  1. Any MISSING line → NOT_COVERED
//  2. Any PARTIAL line → PARTIALLY_COVERED
//  3. Otherwise → COVERED
//
// NOT_APPLICABLE lines never affect the verdict.
func Determine(c coverage.Counts) schema.Verdict {
	if c.Missing > 0 {
		return schema.VerdictNotCovered
	}
	if c.Partial > 0 {
		return schema.VerdictPartiallyCovered
	}
	return schema.VerdictCovered
}

// Summarize computes the report summary: verdict, score and per-status counts.
func Summarize(r *schema.CoverageReport) schema.Summary {
	c := coverage.Summarize(r)
	return schema.Summary{
		Verdict:       Determine(c),
		Score:         ComputeScore(c),
		CoveredCount:  c.Covered,
		PartialCount:  c.Partial,
		MissingCount:  c.Missing,
		NotApplicable: c.NotApplicable,
	}
}

// Reached reports whether actual is at or beyond the fail-on threshold.
func Reached(actual, threshold schema.Verdict) bool {
	return Ordinal(actual) >= Ordinal(threshold)
}
