// Package render produces output from a fully assembled schema.Report.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/rulecheck/internal/coverage"
	"github.com/dshills/rulecheck/internal/schema"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "md"
	FormatText     = "text"
)

// ParseFormat validates a format name. "markdown" and "yml" are accepted as
// aliases.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatJSON, FormatYAML, FormatMarkdown, FormatText:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("render: unknown format %q (available: json, yaml, md, text)", s)
}

// Write renders report in the given format to w. Colors are only used by the
// text format and only when colored is true.
func Write(w io.Writer, format string, report *schema.Report, colored bool) error {
	var b []byte
	var err error
	switch format {
	case FormatJSON:
		b, err = RenderJSON(report)
	case FormatYAML:
		b, err = RenderYAML(report)
	case FormatMarkdown:
		if report == nil {
			return fmt.Errorf("render: nil report")
		}
		b = []byte(RenderMarkdown(report))
	case FormatText:
		return NewTextRenderer(w, colored).Render(report)
	default:
		return fmt.Errorf("render: unknown format %q", format)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("render: write: %w", err)
	}
	if len(b) > 0 && b[len(b)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// RenderJSON produces a pretty-printed JSON representation of the report.
// The output round-trips through json.Unmarshal back to an equal Report.
func RenderJSON(report *schema.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("render: nil report")
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderYAML produces a YAML representation of the report with two-space
// indentation. Field names match the JSON output.
func RenderYAML(report *schema.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("render: nil report")
	}
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("render: yaml marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render: yaml marshal: %w", err)
	}
	return []byte(sb.String()), nil
}

// RenderMarkdown produces a GitHub-flavoured Markdown summary of the report,
// suitable for PR comments or terminal output. Every rule line ID present in
// the report will appear in the output.
func RenderMarkdown(report *schema.Report) string {
	if report == nil {
		return ""
	}
	var sb strings.Builder

	// Summary section.
	sb.WriteString("## rulecheck Report\n\n")
	fmt.Fprintf(&sb, "**Verdict:** %s  \n", report.Summary.Verdict)
	fmt.Fprintf(&sb, "**Score:** %d/100  \n", report.Summary.Score)
	fmt.Fprintf(&sb, "**Covered:** %d | **Partial:** %d | **Missing:** %d",
		report.Summary.CoveredCount, report.Summary.PartialCount, report.Summary.MissingCount)
	if report.Summary.NotApplicable > 0 {
		fmt.Fprintf(&sb, " | **Not applicable:** %d", report.Summary.NotApplicable)
	}
	sb.WriteString("\n\n")

	if report.Coverage != nil && len(report.Coverage.Lines) > 0 {
		sb.WriteString("## Rule Coverage\n\n")
		sb.WriteString("| ID | Line | Status | Rule | Missing |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, v := range report.Coverage.Lines {
			fmt.Fprintf(&sb, "| %s | %d | %s | %s | %s |\n",
				v.Line.ID, v.Line.Number, v.Status, markdownSpans(v), mdEscape(codeList(v.MissingItems)))
		}
		sb.WriteString("\n")

		if len(report.Coverage.AllMissingItems) > 0 {
			sb.WriteString("## Missing Items\n\n")
			for _, item := range report.Coverage.AllMissingItems {
				fmt.Fprintf(&sb, "- `%s`\n", item)
			}
			sb.WriteString("\n")
		}
	}

	if len(report.Suggestions) > 0 {
		sb.WriteString("## Suggested Test Steps\n\n")
		for _, s := range report.Suggestions {
			fmt.Fprintf(&sb, "- **`%s`**: %s", s.Item, mdEscape(s.TestStep))
			if s.Rationale != "" {
				fmt.Fprintf(&sb, " _(%s)_", mdEscape(s.Rationale))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if report.Meta.SuggestionError != "" {
		fmt.Fprintf(&sb, "> Suggestions unavailable: %s\n\n", mdEscape(report.Meta.SuggestionError))
	}

	return sb.String()
}

// markdownSpans renders the rule text with missing items in bold and near
// items in italics.
func markdownSpans(v schema.LineVerdict) string {
	var sb strings.Builder
	for _, s := range coverage.HighlightSpans(v) {
		text := mdEscape(s.Text)
		switch s.Status {
		case schema.ItemMissing:
			fmt.Fprintf(&sb, "**%s**", text)
		case schema.ItemNear:
			fmt.Fprintf(&sb, "_%s_", text)
		default:
			sb.WriteString(text)
		}
	}
	return sb.String()
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "`" + item + "`"
	}
	return strings.Join(quoted, ", ")
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
