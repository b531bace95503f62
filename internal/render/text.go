package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dshills/rulecheck/internal/coverage"
	"github.com/dshills/rulecheck/internal/schema"
)

// TextRenderer writes a report to a terminal, highlighting each rule line by
// item status.
type TextRenderer struct {
	w       io.Writer
	colored bool
}

// NewTextRenderer creates a text renderer. When colored is false no escape
// sequences are written, regardless of the terminal.
func NewTextRenderer(w io.Writer, colored bool) *TextRenderer {
	return &TextRenderer{w: w, colored: colored}
}

func (r *TextRenderer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if r.colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// spanColor maps an item status to its highlight attributes.
func (r *TextRenderer) spanColor(s schema.ItemStatus) *color.Color {
	switch s {
	case schema.ItemMatched:
		return r.paint(color.FgGreen)
	case schema.ItemNear:
		return r.paint(color.FgYellow, color.Underline)
	case schema.ItemMissing:
		return r.paint(color.FgRed, color.Bold)
	case schema.ItemIgnored:
		return r.paint(color.Faint)
	}
	return r.paint()
}

func (r *TextRenderer) statusColor(s schema.Status) *color.Color {
	switch s {
	case schema.StatusCovered:
		return r.paint(color.FgGreen, color.Bold)
	case schema.StatusPartial:
		return r.paint(color.FgYellow, color.Bold)
	case schema.StatusMissing:
		return r.paint(color.FgRed, color.Bold)
	}
	return r.paint(color.FgHiBlack)
}

func (r *TextRenderer) verdictColor(v schema.Verdict) *color.Color {
	switch v {
	case schema.VerdictCovered:
		return r.paint(color.FgGreen, color.Bold)
	case schema.VerdictPartiallyCovered:
		return r.paint(color.FgYellow, color.Bold)
	}
	return r.paint(color.FgRed, color.Bold)
}

// Render writes the report.
func (r *TextRenderer) Render(report *schema.Report) error {
	if report == nil {
		return fmt.Errorf("render: nil report")
	}

	if report.Coverage == nil || len(report.Coverage.Lines) == 0 {
		r.paint(color.FgHiBlack).Fprintln(r.w, "No rule lines found")
	} else {
		for _, v := range report.Coverage.Lines {
			r.printLine(v)
		}
	}

	if report.Coverage != nil && len(report.Coverage.AllMissingItems) > 0 {
		fmt.Fprintln(r.w)
		r.paint(color.FgWhite, color.Bold).Fprintln(r.w, "Missing items")
		for _, item := range report.Coverage.AllMissingItems {
			r.paint(color.FgRed).Fprintf(r.w, "  - %s\n", item)
		}
	}

	if len(report.Suggestions) > 0 {
		fmt.Fprintln(r.w)
		r.paint(color.FgWhite, color.Bold).Fprintln(r.w, "Suggested test steps")
		for _, s := range report.Suggestions {
			r.paint(color.FgCyan).Fprintf(r.w, "  %s: ", s.Item)
			fmt.Fprintln(r.w, s.TestStep)
		}
	}
	if report.Meta.SuggestionError != "" {
		fmt.Fprintln(r.w)
		r.paint(color.FgYellow).Fprintf(r.w, "Suggestions unavailable: %s\n", report.Meta.SuggestionError)
	}

	r.printSummary(report.Summary)
	return nil
}

func (r *TextRenderer) printLine(v schema.LineVerdict) {
	r.statusColor(v.Status).Fprintf(r.w, "%-15s", v.Status)
	r.paint(color.FgHiBlack).Fprintf(r.w, "%s:%d  ", v.Line.ID, v.Line.Number)
	for _, s := range coverage.HighlightSpans(v) {
		if s.Status == schema.ItemText {
			fmt.Fprint(r.w, s.Text)
			continue
		}
		r.spanColor(s.Status).Fprint(r.w, s.Text)
	}
	fmt.Fprintln(r.w)
	if len(v.NearItems) > 0 {
		r.paint(color.FgHiBlack).Fprintf(r.w, "%15s  near: %v\n", "", v.NearItems)
	}
}

func (r *TextRenderer) printSummary(s schema.Summary) {
	fmt.Fprintln(r.w)
	r.verdictColor(s.Verdict).Fprintf(r.w, "%s", s.Verdict)
	fmt.Fprintf(r.w, " (score %d/100)  ", s.Score)
	r.paint(color.FgGreen).Fprintf(r.w, "%d covered", s.CoveredCount)
	fmt.Fprint(r.w, ", ")
	r.paint(color.FgYellow).Fprintf(r.w, "%d partial", s.PartialCount)
	fmt.Fprint(r.w, ", ")
	r.paint(color.FgRed).Fprintf(r.w, "%d missing", s.MissingCount)
	if s.NotApplicable > 0 {
		fmt.Fprintf(r.w, ", %d not applicable", s.NotApplicable)
	}
	fmt.Fprintln(r.w)
}
