// Package mdparse classifies single lines of lightly formatted Markdown. Rule
// documents are often pasted from word processors as numbered or bulleted
// lists under headings; the rule splitter uses these helpers to skip
// structural lines and to keep list markers out of item extraction.
package mdparse

import (
	"strings"
)

// LineKind is the structural role of a single line.
type LineKind int

const (
	KindBlank LineKind = iota
	KindHeading
	KindDecorator
	KindFence
	KindListItem
	KindText
)

// String returns the kind name used in debug output.
func (k LineKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindHeading:
		return "heading"
	case KindDecorator:
		return "decorator"
	case KindFence:
		return "fence"
	case KindListItem:
		return "list-item"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Classify returns the kind of line and, for list items, the byte length of
// the leading marker (indentation, marker and following space) so callers can
// skip it without losing the original text.
func Classify(line string) (LineKind, int) {
	switch {
	case strings.TrimSpace(line) == "":
		return KindBlank, 0
	case IsHeading(line):
		return KindHeading, 0
	case fencePrefix(line) != "":
		return KindFence, 0
	case IsDecorator(line):
		return KindDecorator, 0
	}
	if n := ListPrefixLen(line); n > 0 {
		return KindListItem, n
	}
	return KindText, 0
}

// fencePrefix returns the opening fence string (e.g. "```" or "~~~~") if line
// starts a fenced code block, otherwise returns "".
// CommonMark allows up to 3 leading spaces before the fence marker.
func fencePrefix(line string) string {
	leading := 0
	for leading < len(line) && line[leading] == ' ' {
		leading++
	}
	if leading >= 4 {
		return ""
	}
	stripped := line[leading:]
	for _, marker := range []byte{'`', '~'} {
		if len(stripped) < 3 || stripped[0] != marker {
			continue
		}
		count := 0
		for count < len(stripped) && stripped[count] == marker {
			count++
		}
		if count >= 3 {
			return stripped[:count]
		}
	}
	return ""
}

// numberedMarkerLen returns the length of an enumeration marker at the start
// of s: "12." or "3)" or a single letter "a)" / "b.", and "(4)" or "(c)". The
// marker must be followed by a space. It returns 0 when s has no such marker.
func numberedMarkerLen(s string) int {
	i := 0
	closer := byte(0)
	if strings.HasPrefix(s, "(") {
		i, closer = 1, ')'
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start && i < len(s) && isASCIILetter(s[i]) {
		i++
	}
	if i == start || i >= len(s) {
		return 0
	}
	if closer != 0 {
		if s[i] != closer {
			return 0
		}
	} else if s[i] != '.' && s[i] != ')' {
		return 0
	}
	i++
	if i >= len(s) || s[i] != ' ' {
		return 0
	}
	return i
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// bulletMarkers are the accepted bullet characters.
var bulletMarkers = []string{"•", "▪", "-", "*", "+"}

// bulletMarkerLen returns the byte length of a bullet marker at the start of
// s when it is followed by a space, otherwise 0.
func bulletMarkerLen(s string) int {
	for _, m := range bulletMarkers {
		if strings.HasPrefix(s, m+" ") {
			return len(m)
		}
	}
	return 0
}

// IsHeading returns true for ATX Markdown headings (# through ######).
// A space immediately after the hashes is required (CommonMark ATX heading syntax).
// Lines with 4 or more leading spaces are indented code blocks, not headings.
func IsHeading(line string) bool {
	leading := 0
	for leading < len(line) && line[leading] == ' ' {
		leading++
	}
	if leading >= 4 {
		return false
	}
	t := strings.TrimSpace(line)
	hashes := strings.IndexFunc(t, func(r rune) bool { return r != '#' })
	return hashes > 0 && hashes <= 6 && len(t) > hashes && t[hashes] == ' '
}

// HeadingBodyOffset returns the byte offset of a heading's text, past the
// hashes and an outline number such as "3", "3.2" or "4.1.". It returns 0 when
// line is not a heading.
func HeadingBodyOffset(line string) int {
	if !IsHeading(line) {
		return 0
	}
	i := skipBlanks(line, 0)
	for i < len(line) && line[i] == '#' {
		i++
	}
	i = skipBlanks(line, i)
	j := i
	for j < len(line) && (line[j] == '.' || (line[j] >= '0' && line[j] <= '9')) {
		j++
	}
	if j > i && line[i] != '.' && (j == len(line) || line[j] == ' ' || line[j] == '\t') {
		i = skipBlanks(line, j)
	}
	return i
}

func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// IsDecorator returns true for lines composed entirely of the same separator
// character repeated at least 3 times (consistent with CommonMark thematic breaks).
// Supported separators: - = * _ ⸻ —
func IsDecorator(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 {
		return false
	}
	var first rune
	count := 0
	for _, ch := range trimmed {
		if count == 0 {
			first = ch
		}
		if ch != first {
			return false
		}
		count++
	}
	if first != '-' && first != '=' && first != '*' && first != '_' && first != '⸻' && first != '—' {
		return false
	}
	return count >= 3
}

// ListPrefixLen returns the byte length of a leading list marker ("1.", "2)",
// "a)", "(3)", "-", "*", "+", "•") including surrounding whitespace, or 0 when
// line is not a list item. line[ListPrefixLen(line):] is the item body.
func ListPrefixLen(line string) int {
	lead := len(line) - len(strings.TrimLeft(line, " \t"))
	rest := line[lead:]
	n := numberedMarkerLen(rest)
	if n == 0 {
		n = bulletMarkerLen(rest)
	}
	if n == 0 {
		return 0
	}
	body := rest[n:]
	return lead + n + len(body) - len(strings.TrimLeft(body, " \t"))
}
