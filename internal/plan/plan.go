// Package plan builds the flattened token set of a proposed test plan.
package plan

import (
	"sort"
	"strings"

	"github.com/dshills/rulecheck/internal/schema"
	"github.com/dshills/rulecheck/internal/tokenize"
)

// TokenSet is every check item of a plan document, collapsed by normalized
// key. It also keeps the lookups needed by the non-normalized match modes.
// A TokenSet is immutable after Build and safe for concurrent reads.
type TokenSet struct {
	kinds   map[string]schema.ItemKind
	raws    map[string]bool
	numbers map[string]bool
	words   []string
	lines   []string
	lowered string
}

// Build extracts the token set of text. An empty plan yields an empty set.
func Build(text string) *TokenSet {
	ts := &TokenSet{
		kinds:   make(map[string]schema.ItemKind),
		raws:    make(map[string]bool),
		numbers: make(map[string]bool),
		lowered: strings.ToLower(text),
	}
	for _, it := range tokenize.ExtractCheckItems(text) {
		ts.kinds[it.Key] = it.Kind
		if it.Kind == schema.KindWord {
			ts.words = append(ts.words, it.Key)
		}
	}
	for _, it := range tokenize.Scan(text) {
		ts.raws[RawForm(it.Raw)] = true
	}
	for _, n := range tokenize.NumberLiterals(text) {
		ts.numbers[n] = true
	}
	for _, line := range strings.Split(text, "\n") {
		if seq := WordSequence(tokenize.Scan(line)); seq != "" {
			ts.lines = append(ts.lines, seq)
		}
	}
	sort.Strings(ts.words)
	return ts
}

// WordSequence joins the keys of the word items in items with single spaces,
// skipping repeats. It is the form compared by whole-line similarity.
func WordSequence(items []schema.CheckItem) string {
	var keys []string
	seen := make(map[string]bool)
	for _, it := range items {
		if it.Kind != schema.KindWord || seen[it.Key] {
			continue
		}
		seen[it.Key] = true
		keys = append(keys, it.Key)
	}
	return strings.Join(keys, " ")
}

// RawForm is the comparison form used by exact (non-normalized) matching:
// lowercase with surrounding whitespace removed, nothing else touched.
func RawForm(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Has reports whether a normalized key occurs in the plan.
func (ts *TokenSet) Has(key string) bool {
	_, ok := ts.kinds[key]
	return ok
}

// HasRaw reports whether the raw token occurs verbatim (case-insensitive).
func (ts *TokenSet) HasRaw(raw string) bool {
	return ts.raws[RawForm(raw)]
}

// Contains reports whether s occurs anywhere in the lowercased plan text.
func (ts *TokenSet) Contains(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s != "" && strings.Contains(ts.lowered, s)
}

// HasNumber reports whether a canonical number literal occurs in the plan.
func (ts *TokenSet) HasNumber(n string) bool {
	return ts.numbers[n]
}

// WordKeys returns the sorted keys of word items, the candidates for fuzzy
// comparison. Numeric keys are never fuzzy candidates.
func (ts *TokenSet) WordKeys() []string {
	return ts.words
}

// LineSequences returns the word sequence of every plan line that has words.
func (ts *TokenSet) LineSequences() []string {
	return ts.lines
}

// Keys returns every normalized key in sorted order.
func (ts *TokenSet) Keys() []string {
	keys := make([]string, 0, len(ts.kinds))
	for k := range ts.kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of distinct normalized keys.
func (ts *TokenSet) Len() int {
	return len(ts.kinds)
}
