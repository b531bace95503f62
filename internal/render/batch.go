package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/dshills/rulecheck/internal/schema"
)

// WriteBatch renders a batch report. The md and text formats produce one
// table row per rule file.
func WriteBatch(w io.Writer, format string, report *schema.BatchReport, colored bool) error {
	if report == nil {
		return fmt.Errorf("render: nil batch report")
	}
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("render: json marshal: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("render: yaml marshal: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, batchMarkdown(report))
		return err
	case FormatText:
		return batchText(w, report, colored)
	}
	return fmt.Errorf("render: unknown format %q", format)
}

func batchMarkdown(report *schema.BatchReport) string {
	var sb strings.Builder
	sb.WriteString("## rulecheck Batch Report\n\n")
	fmt.Fprintf(&sb, "**Plan:** %s  \n**Profile:** %s\n\n", mdEscape(report.PlanFile), report.Profile)
	sb.WriteString("| Rule file | Verdict | Score | Covered | Partial | Missing | Missing items |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, e := range report.Entries {
		if e.Error != "" {
			fmt.Fprintf(&sb, "| %s | ERROR | | | | | %s |\n", mdEscape(e.RuleFile), mdEscape(e.Error))
			continue
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %d | %d | %s |\n",
			mdEscape(e.RuleFile), e.Summary.Verdict, e.Summary.Score,
			e.Summary.CoveredCount, e.Summary.PartialCount, e.Summary.MissingCount,
			mdEscape(codeList(e.MissingItems)))
	}
	return sb.String()
}

func batchText(w io.Writer, report *schema.BatchReport, colored bool) error {
	r := NewTextRenderer(w, colored)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	// verdict goes last so escape sequences do not skew column widths
	fmt.Fprintln(tw, "RULE FILE\tSCORE\tCOVERED\tPARTIAL\tMISSING\tVERDICT")
	for _, e := range report.Entries {
		if e.Error != "" {
			fmt.Fprintf(tw, "%s\t\t\t\t\t%s\n", e.RuleFile, r.paint(color.FgRed).Sprint("ERROR: "+e.Error))
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
			e.RuleFile, e.Summary.Score, e.Summary.CoveredCount, e.Summary.PartialCount,
			e.Summary.MissingCount, r.verdictColor(e.Summary.Verdict).Sprint(e.Summary.Verdict))
	}
	return tw.Flush()
}
