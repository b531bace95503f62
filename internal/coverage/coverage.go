// Package coverage runs a full rule/plan analysis and provides pure helpers
// over the resulting report: grouping, the missing-item catalog, per-status
// counts and highlight spans.
package coverage

import (
	"fmt"
	"sort"

	"github.com/dshills/rulecheck/internal/match"
	"github.com/dshills/rulecheck/internal/plan"
	"github.com/dshills/rulecheck/internal/rule"
	"github.com/dshills/rulecheck/internal/schema"
)

// Analyze compares every line of ruleText against planText. The config is
// validated once, up front; an invalid config yields an error wrapping
// match.ErrInvalidConfig. Empty rule text is not an error and produces a
// report with zero lines.
func Analyze(ruleText, planText string, cfg match.Config) (*schema.CoverageReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("coverage: %w", err)
	}

	lines := rule.Split(ruleText)
	ts := plan.Build(planText)

	r := &schema.CoverageReport{Lines: make([]schema.LineVerdict, 0, len(lines))}
	for _, line := range lines {
		r.Lines = append(r.Lines, match.Evaluate(line, ts, cfg))
	}
	r.AllMissingItems = MissingItemCatalog(r)
	return r, nil
}

// ParseStatus converts a string to a Status constant.
// Returns an error for unrecognized values.
func ParseStatus(s string) (schema.Status, error) {
	switch schema.Status(s) {
	case schema.StatusCovered, schema.StatusPartial,
		schema.StatusMissing, schema.StatusNotApplicable:
		return schema.Status(s), nil
	}
	return "", fmt.Errorf("coverage: unknown status %q", s)
}

// GroupByStatus buckets the report's lines by status, preserving line order.
// COVERED, PARTIAL and MISSING are always present; NOT_APPLICABLE only when
// some line has it.
func GroupByStatus(r *schema.CoverageReport) map[schema.Status][]schema.LineVerdict {
	groups := map[schema.Status][]schema.LineVerdict{
		schema.StatusCovered: {},
		schema.StatusPartial: {},
		schema.StatusMissing: {},
	}
	if r == nil {
		return groups
	}
	for _, v := range r.Lines {
		groups[v.Status] = append(groups[v.Status], v)
	}
	return groups
}

// MissingItemCatalog returns the sorted, deduplicated union of the missing
// keys of all MISSING and PARTIAL lines.
func MissingItemCatalog(r *schema.CoverageReport) []string {
	out := []string{}
	if r == nil {
		return out
	}
	seen := make(map[string]bool)
	for _, v := range r.Lines {
		if v.Status != schema.StatusMissing && v.Status != schema.StatusPartial {
			continue
		}
		for _, key := range v.MissingItems {
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Counts holds the number of lines per status.
type Counts struct {
	Covered       int
	Partial       int
	Missing       int
	NotApplicable int
}

// Applicable is the number of lines that take part in scoring.
func (c Counts) Applicable() int {
	return c.Covered + c.Partial + c.Missing
}

// Summarize counts lines by status.
func Summarize(r *schema.CoverageReport) Counts {
	var c Counts
	if r == nil {
		return c
	}
	for _, v := range r.Lines {
		switch v.Status {
		case schema.StatusCovered:
			c.Covered++
		case schema.StatusPartial:
			c.Partial++
		case schema.StatusMissing:
			c.Missing++
		case schema.StatusNotApplicable:
			c.NotApplicable++
		}
	}
	return c
}

// HighlightSpans partitions the line text into spans: one per item
// occurrence, carrying that item's result status, and TEXT spans for
// everything in between. Joining the span texts reproduces the line text.
//
// Occurrences that overlap an earlier span are folded into it; at equal
// offsets the numeric item wins.
func HighlightSpans(v schema.LineVerdict) []schema.Span {
	text := v.Line.Text
	status := make(map[string]schema.ItemStatus, len(v.Items))
	for _, r := range v.Items {
		status[r.Item.Key] = r.Status
	}

	occ := make([]schema.CheckItem, len(v.Line.Items))
	copy(occ, v.Line.Items)
	sort.SliceStable(occ, func(i, j int) bool {
		if occ[i].Start != occ[j].Start {
			return occ[i].Start < occ[j].Start
		}
		return occ[i].Kind == schema.KindNumeric && occ[j].Kind != schema.KindNumeric
	})

	var spans []schema.Span
	cursor := 0
	for _, it := range occ {
		if it.Start < cursor || it.End <= it.Start || it.End > len(text) {
			continue
		}
		st, ok := status[it.Key]
		if !ok {
			continue
		}
		if it.Start > cursor {
			spans = append(spans, schema.Span{Text: text[cursor:it.Start], Status: schema.ItemText})
		}
		spans = append(spans, schema.Span{Text: text[it.Start:it.End], Status: st})
		cursor = it.End
	}
	if cursor < len(text) {
		spans = append(spans, schema.Span{Text: text[cursor:], Status: schema.ItemText})
	}
	return spans
}
