// Package tokenize extracts and canonicalizes check items from free text.
//
// Two independent passes run over the ASCII-lowercased input: a numeric pass
// for numbers with optional units ("-30c", "2.4 GHz", "256-QAM") and a word
// pass for alphanumeric runs. Lowercasing is ASCII-only so byte offsets in the
// result always refer to the caller's original text.
package tokenize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/rulecheck/internal/schema"
)

// numericRe captures sign, number, separator and unit. The number may carry
// an exponent ("1e5"). The separator may be empty, a hyphen, a degree sign or
// spaces and tabs; it never spans a line break.
var numericRe = regexp.MustCompile(`(-?)(\d+(?:\.\d+)?(?:e[+-]?\d+)?)(?:([ \t]*°[ \t]*|[ \t]+|-)?([a-z]+|%))?`)

// wordRe matches runs of word characters and hyphens of length two or more.
var wordRe = regexp.MustCompile(`\b[\w\-]{2,}\b`)

// leadingNumberRe splits a single token into its signed decimal prefix and
// whatever follows.
var leadingNumberRe = regexp.MustCompile(`(?s)^(-?)(\d+(?:\.\d+)?(?:e[+-]?\d+)?)\.?(.*)$`)

// knownUnits lists the units accepted when separated from their number by
// whitespace. Glued units ("25c") are accepted unconditionally. "a" is left
// out: "3 a second time" is an article, not amperes.
var knownUnits = map[string]bool{
	"c": true, "f": true, "k": true, "deg": true, "degc": true, "degf": true,
	"hz": true, "khz": true, "mhz": true, "ghz": true, "thz": true,
	"w": true, "mw": true, "kw": true, "uw": true, "dbm": true, "dbw": true,
	"db": true, "dbi": true, "dbc": true,
	"v": true, "mv": true, "kv": true, "uv": true, "vac": true, "vdc": true,
	"ma": true, "ua": true,
	"ohm": true, "ohms": true, "kohm": true, "kohms": true, "mohm": true, "mohms": true,
	"celsius": true, "fahrenheit": true,
	"s": true, "ms": true, "us": true, "ns": true, "ps": true,
	"sec": true, "secs": true, "seconds": true, "min": true, "mins": true, "minutes": true,
	"h": true, "hr": true, "hrs": true, "hour": true, "hours": true,
	"m": true, "mm": true, "cm": true, "um": true, "nm": true, "km": true,
	"g": true, "kg": true, "mg": true,
	"b": true, "kb": true, "mb": true, "gb": true, "tb": true,
	"bps": true, "kbps": true, "mbps": true, "gbps": true,
	"ppm": true, "ppb": true, "rpm": true, "lux": true,
	"pa": true, "kpa": true, "mpa": true, "bar": true, "psi": true,
	"qam": true, "psk": true, "qpsk": true, "bpsk": true, "%": true,
}

// unitAliases maps alternate unit spellings to one canonical form. No value
// is itself a key, so NormalizeToken stays a fixed point.
var unitAliases = map[string]string{
	"degc": "c", "degf": "f", "degk": "k", "celsius": "c", "fahrenheit": "f",
	"ohms": "ohm", "kohms": "kohm", "mohms": "mohm",
	"sec": "s", "secs": "s", "seconds": "s", "msec": "ms", "usec": "us",
	"mins": "min", "minutes": "min",
	"hr": "h", "hrs": "h", "hour": "h", "hours": "h",
}

// Scan returns every check item occurrence in text, in textual order.
// Numeric and word items may overlap; the caller decides how to merge them.
func Scan(text string) []schema.CheckItem {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := asciiLower(text)
	items := scanNumeric(text, lower)
	numeric := len(items)
	for _, w := range scanWords(text, lower) {
		// a unit word inside "10 ms" is part of the numeric token
		if !containedIn(w, items[:numeric]) {
			items = append(items, w)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Start != items[j].Start {
			return items[i].Start < items[j].Start
		}
		return items[i].Kind == schema.KindNumeric && items[j].Kind != schema.KindNumeric
	})
	return items
}

// ExtractCheckItems returns the set of check items in text, deduplicated by
// normalized key in order of first appearance. When a key is produced by both
// passes the numeric item wins.
func ExtractCheckItems(text string) []schema.CheckItem {
	return Dedupe(Scan(text))
}

// Dedupe collapses items with equal keys, keeping the first occurrence and
// preferring numeric items over word items.
func Dedupe(items []schema.CheckItem) []schema.CheckItem {
	var out []schema.CheckItem
	seen := make(map[string]int, len(items))
	for _, it := range items {
		if idx, ok := seen[it.Key]; ok {
			if out[idx].Kind == schema.KindWord && it.Kind == schema.KindNumeric {
				out[idx] = it
			}
			continue
		}
		seen[it.Key] = len(out)
		out = append(out, it)
	}
	return out
}

func scanNumeric(text, lower string) []schema.CheckItem {
	var items []schema.CheckItem
	lastEnd := -1
	for _, m := range numericRe.FindAllStringSubmatchIndex(lower, -1) {
		start, end := m[0], m[1]
		signed := m[3] > m[2]
		if start > 0 && isWordByte(lower[start-1]) {
			switch {
			case signed:
				// "10-20c": the hyphen is a range dash, not a sign
				start++
			case start == lastEnd:
				// "5x10": follows a numeric item, not an identifier
			default:
				// glued to a preceding identifier: "ipv6", "v1.2"
				continue
			}
		}
		if start > 0 && lower[start-1] == '.' {
			continue
		}
		if m[8] >= 0 {
			sep := ""
			if m[6] >= 0 {
				sep = lower[m[6]:m[7]]
			}
			unit := lower[m[8]:m[9]]
			if strings.TrimSpace(sep) == "" && sep != "" && !knownUnits[unit] {
				end = m[5]
			} else if unit == "deg" {
				end = degreeScale(lower, end)
			}
		}
		raw := text[start:end]
		key := NormalizeToken(raw)
		if key == "" {
			continue
		}
		items = append(items, schema.CheckItem{
			Raw:   raw,
			Key:   key,
			Kind:  schema.KindNumeric,
			Start: start,
			End:   end,
		})
		lastEnd = end
	}
	return items
}

// degreeScale extends a "deg" unit ending at end over a following scale
// letter: "25 deg C". It returns end unchanged when no scale letter follows.
func degreeScale(lower string, end int) int {
	i := end
	for i < len(lower) && (lower[i] == ' ' || lower[i] == '\t') {
		i++
	}
	if i == end || i >= len(lower) {
		return end
	}
	switch lower[i] {
	case 'c', 'f', 'k':
		if i+1 == len(lower) || !isWordByte(lower[i+1]) {
			return i + 1
		}
	}
	return end
}

func scanWords(text, lower string) []schema.CheckItem {
	var items []schema.CheckItem
	for _, loc := range wordRe.FindAllStringIndex(lower, -1) {
		start, end := loc[0], loc[1]
		if isDigit(lower[start]) {
			continue
		}
		raw := text[start:end]
		key := NormalizeToken(raw)
		if key == "" {
			continue
		}
		items = append(items, schema.CheckItem{
			Raw:   raw,
			Key:   key,
			Kind:  schema.KindWord,
			Start: start,
			End:   end,
		})
	}
	return items
}

func containedIn(it schema.CheckItem, spans []schema.CheckItem) bool {
	for _, s := range spans {
		if it.Start >= s.Start && it.End <= s.End {
			return true
		}
	}
	return false
}

// NormalizeToken canonicalizes a single token. A token that starts with a
// signed decimal keeps its sign, its canonical number and its unit letters
// ("25 °C", "25C" and "25.0c" all become "25c"); any other token is stripped
// to lowercase alphanumerics ("256-QAM" becomes "256qam" through the numeric
// branch, "Stability" becomes "stability"). The result is a fixed point:
// NormalizeToken(NormalizeToken(t)) == NormalizeToken(t).
func NormalizeToken(token string) string {
	t := strings.TrimSpace(asciiLower(token))
	t = strings.TrimLeft(t, "+")
	m := leadingNumberRe.FindStringSubmatch(t)
	if m == nil {
		s := stripToAlnum(t)
		if s != "" && isDigit(s[0]) {
			// "_05g" strips to a numeric form; canonicalize it as one
			return NormalizeToken(s)
		}
		return s
	}
	num := canonicalNumber(m[2])
	if m[1] == "-" && num != "0" {
		num = "-" + num
	}
	unit := stripToUnit(m[3])
	if alias, ok := unitAliases[unit]; ok {
		unit = alias
	}
	return num + unit
}

// NumberLiterals returns the canonical number literals in text (sign and
// digits, no unit), deduplicated in order of first appearance.
func NumberLiterals(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, it := range Scan(text) {
		if it.Kind != schema.KindNumeric {
			continue
		}
		n := NumberPart(it.Key)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// NumberPart returns the signed number prefix of a normalized numeric key.
func NumberPart(key string) string {
	i := 0
	if i < len(key) && key[i] == '-' {
		i++
	}
	for i < len(key) && (isDigit(key[i]) || key[i] == '.') {
		i++
	}
	if i == 0 || (i == 1 && key[0] == '-') {
		return ""
	}
	// exponent: "1e5hz", "2e-3s"
	if j := i + 1; i < len(key) && key[i] == 'e' {
		if j < len(key) && key[j] == '-' {
			j++
		}
		if j < len(key) && isDigit(key[j]) {
			for j < len(key) && isDigit(key[j]) {
				j++
			}
			i = j
		}
	}
	return key[:i]
}

// canonicalNumber removes redundant leading zeros from the integer part and
// trailing zeros from the fraction: "007.50" -> "7.5", "25.0" -> "25". An
// exponent keeps its sign without "+" or leading zeros; a zero exponent is
// dropped: "1.0e+05" -> "1e5", "3e0" -> "3".
func canonicalNumber(s string) string {
	mantissa, exp, hasExp := strings.Cut(s, "e")
	num := canonicalDecimal(mantissa)
	if !hasExp || num == "0" {
		return num
	}
	sign := ""
	if strings.HasPrefix(exp, "-") {
		sign = "-"
	}
	exp = strings.TrimLeft(strings.TrimLeft(exp, "+-"), "0")
	if exp == "" {
		return num
	}
	return num + "e" + sign + exp
}

func canonicalDecimal(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

func stripToAlnum(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isDigit(c) || (c >= 'a' && c <= 'z') {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func stripToUnit(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || c == '%' {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// asciiLower lowercases A-Z only, so len(asciiLower(s)) == len(s).
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordByte(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
