package suggest

import (
	"strings"

	"github.com/dshills/rulecheck/internal/coverage"
	"github.com/dshills/rulecheck/internal/schema"
)

// HistorySeparator separates prior-analysis blobs in a joined history context.
const HistorySeparator = "\n\n---\n\n"

// JoinHistory concatenates prior-analysis blobs into one history context,
// skipping blank entries. Entries are trimmed; order is preserved.
func JoinHistory(entries ...string) string {
	var kept []string
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			kept = append(kept, e)
		}
	}
	return strings.Join(kept, HistorySeparator)
}

// BuildSuggestionRequest assembles the request for a suggestion generator:
// the plan text, the missing-item catalog of r, the history context and the
// lines that are not fully covered. It performs no I/O.
func BuildSuggestionRequest(r *schema.CoverageReport, planText, historyContext string) schema.SuggestionRequest {
	req := schema.SuggestionRequest{
		PlanText:       planText,
		MissingItems:   coverage.MissingItemCatalog(r),
		HistoryContext: historyContext,
		Lines:          []schema.LineVerdict{},
	}
	if r == nil {
		return req
	}
	for _, v := range r.Lines {
		if v.Status == schema.StatusMissing || v.Status == schema.StatusPartial {
			req.Lines = append(req.Lines, v)
		}
	}
	return req
}
