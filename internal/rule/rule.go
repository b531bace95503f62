// Package rule splits a rule document into RuleLines.
package rule

import (
	"fmt"
	"strings"

	"github.com/dshills/rulecheck/internal/mdparse"
	"github.com/dshills/rulecheck/internal/schema"
	"github.com/dshills/rulecheck/internal/tokenize"
)

// IDPrefix prefixes every rule line ID ("RULE-001").
const IDPrefix = "RULE"

// Split returns one RuleLine per non-blank line of text. Thematic breaks and
// code fence markers are structure, not requirements, and produce no
// RuleLine. So are headings, unless their text carries a numeric item past
// any outline number: "# of channels: 8" is a requirement, "## 3.2 RF" is
// not. A leading list marker ("1.", "-", "•") stays in Text but is not
// scanned for items, so list numbering never becomes a numeric check item.
// Item offsets are relative to the full line.
//
// Split keeps no state between calls and is safe for concurrent use.
func Split(text string) []schema.RuleLine {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var lines []schema.RuleLine
	counter := 0
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSuffix(raw, "\r")
		kind, prefix := mdparse.Classify(line)
		switch kind {
		case mdparse.KindBlank, mdparse.KindDecorator, mdparse.KindFence:
			continue
		case mdparse.KindHeading:
			prefix = mdparse.HeadingBodyOffset(line)
		}
		items := scanBody(line, prefix)
		if kind == mdparse.KindHeading && !hasNumeric(items) {
			continue
		}
		counter++
		lines = append(lines, schema.RuleLine{
			ID:     fmt.Sprintf("%s-%03d", IDPrefix, counter),
			Number: i + 1,
			Text:   line,
			Items:  items,
		})
	}
	return lines
}

// scanBody scans line[offset:] and rebases item offsets onto line.
func scanBody(line string, offset int) []schema.CheckItem {
	items := tokenize.Scan(line[offset:])
	for i := range items {
		items[i].Start += offset
		items[i].End += offset
	}
	return items
}

func hasNumeric(items []schema.CheckItem) bool {
	for _, it := range items {
		if it.Kind == schema.KindNumeric {
			return true
		}
	}
	return false
}
