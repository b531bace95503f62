// Package match decides, per rule line, whether its check items are covered,
// partially covered or missing from a plan's token set.
//
// Matching is tiered. An item is first looked up according to the configured
// Mode; only when that fails, and only in fuzzy mode, is a word item compared
// with the plan's words by edit similarity. Numbers are never fuzzy. An exact
// hit therefore always wins over any near match.
package match

import (
	"github.com/agnivade/levenshtein"

	"github.com/dshills/rulecheck/internal/plan"
	"github.com/dshills/rulecheck/internal/schema"
	"github.com/dshills/rulecheck/internal/tokenize"
)

// Evaluate compares one rule line with the plan. cfg must already be valid;
// see Config.Validate. Evaluate never fails: a line without checked items is
// resolved by the empty-line policy.
func Evaluate(line schema.RuleLine, ts *plan.TokenSet, cfg Config) schema.LineVerdict {
	checked, ignored := selectItems(line.Items, cfg.ItemPolicy)

	v := schema.LineVerdict{
		Line:         line,
		Items:        make([]schema.ItemResult, 0, len(checked)+len(ignored)),
		MatchedItems: []string{},
		MissingItems: []string{},
	}

	var score float64
	for _, it := range checked {
		r := matchItem(it, ts, cfg)
		if cfg.NumericDocumentCheck && r.Status == schema.ItemMatched && it.Kind == schema.KindNumeric {
			if n := tokenize.NumberPart(it.Key); n != "" && !ts.HasNumber(n) {
				r = schema.ItemResult{Item: it, Status: schema.ItemMissing}
			}
		}
		switch r.Status {
		case schema.ItemMatched:
			v.MatchedItems = append(v.MatchedItems, it.Key)
		case schema.ItemNear:
			v.NearItems = append(v.NearItems, it.Key)
			v.MissingItems = append(v.MissingItems, it.Key)
		default:
			v.MissingItems = append(v.MissingItems, it.Key)
		}
		score += r.Similarity
		v.Items = append(v.Items, r)
	}
	for _, it := range ignored {
		v.Items = append(v.Items, schema.ItemResult{Item: it, Status: schema.ItemIgnored})
	}

	if len(checked) == 0 {
		v.Status = schema.StatusCovered
		if cfg.EmptyLines == EmptyNotApplicable {
			v.Status = schema.StatusNotApplicable
		}
		return v
	}
	v.Similarity = score / float64(len(checked))

	if cfg.FuzzyEnabled() {
		v.LineSimilarity = lineSimilarity(checked, ts)
	}

	switch {
	case len(v.MissingItems) == 0:
		v.Status = schema.StatusCovered
	case len(v.MatchedItems) > 0 || len(v.NearItems) > 0:
		v.Status = schema.StatusPartial
	case cfg.FuzzyEnabled() && v.LineSimilarity >= cfg.FullMatchThreshold:
		v.Status = schema.StatusPartial
	default:
		v.Status = schema.StatusMissing
	}
	return v
}

// selectItems deduplicates the line's item occurrences by key and splits them
// into checked and ignored items according to policy.
func selectItems(items []schema.CheckItem, policy ItemPolicy) (checked, ignored []schema.CheckItem) {
	unique := tokenize.Dedupe(items)
	if policy != PolicyNumericFirst {
		return unique, nil
	}
	hasNumeric := false
	for _, it := range unique {
		if it.Kind == schema.KindNumeric {
			hasNumeric = true
			break
		}
	}
	if !hasNumeric {
		return unique, nil
	}
	for _, it := range unique {
		if it.Kind == schema.KindNumeric {
			checked = append(checked, it)
		} else {
			ignored = append(ignored, it)
		}
	}
	return checked, ignored
}

func matchItem(it schema.CheckItem, ts *plan.TokenSet, cfg Config) schema.ItemResult {
	var found bool
	switch cfg.Mode {
	case ModeSubstring:
		found = ts.Contains(it.Raw)
	case ModeExact:
		found = ts.HasRaw(it.Raw)
	default:
		found = ts.Has(it.Key)
	}
	if found {
		return schema.ItemResult{Item: it, Status: schema.ItemMatched, BestMatch: it.Key, Similarity: 1}
	}
	if !cfg.FuzzyEnabled() || it.Kind != schema.KindWord {
		return schema.ItemResult{Item: it, Status: schema.ItemMissing}
	}
	best, ratio := bestWord(it.Key, ts.WordKeys())
	r := schema.ItemResult{Item: it, Status: schema.ItemMissing, BestMatch: best, Similarity: ratio}
	if best != "" && ratio >= cfg.PartialThreshold {
		r.Status = schema.ItemNear
	}
	return r
}

// bestWord returns the candidate most similar to key. Ties keep the first
// candidate in order, so results are deterministic for sorted input.
func bestWord(key string, candidates []string) (string, float64) {
	var best string
	var bestRatio float64
	for _, c := range candidates {
		if r := Similarity(key, c); r > bestRatio {
			best, bestRatio = c, r
		}
	}
	return best, bestRatio
}

// lineSimilarity compares the checked words of a rule line, as one sequence,
// with every plan line and returns the best ratio. Lines whose checked items
// are all numeric have no word sequence and score 0.
func lineSimilarity(checked []schema.CheckItem, ts *plan.TokenSet) float64 {
	seq := plan.WordSequence(checked)
	if seq == "" {
		return 0
	}
	var best float64
	for _, candidate := range ts.LineSequences() {
		if r := Similarity(seq, candidate); r > best {
			best = r
		}
	}
	return best
}

// Similarity is the normalized edit similarity of a and b in [0, 1]:
// 1 - levenshtein(a, b) / max(len(a), len(b)), counted in runes.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
