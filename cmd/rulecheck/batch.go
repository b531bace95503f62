package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/rulecheck/internal/coverage"
	"github.com/dshills/rulecheck/internal/match"
	"github.com/dshills/rulecheck/internal/render"
	"github.com/dshills/rulecheck/internal/schema"
	"github.com/dshills/rulecheck/internal/verdict"
)

type batchFlags struct {
	plan       string
	rules      []string
	out        string
	configPath string
	jobs       int
	failOn     string
	noColor    bool

	settings *pflag.FlagSet
	stdout   io.Writer
	logger   *zap.Logger
}

func newBatchCmd(getLogger func() *zap.Logger) *cobra.Command {
	var f batchFlags

	cmd := &cobra.Command{
		Use:   "batch --plan FILE RULEFILE...",
		Short: "Check one test plan against many rule documents",
		Long: `Batch analyzes every rule document against the same plan and prints one
summary row per rule document. A rule document that cannot be read is
reported in its row and does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.rules = args
			f.settings = cmd.Flags()
			f.stdout = cmd.OutOrStdout()
			f.logger = getLogger()
			return runBatch(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.plan, "plan", "", "Test plan path (required)")
	cmd.Flags().StringVar(&f.out, "out", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&f.configPath, "config", "", "Explicit config file")
	cmd.Flags().IntVar(&f.jobs, "jobs", 4, "Rule documents analyzed in parallel")
	cmd.Flags().StringVar(&f.failOn, "fail-on", "", "Exit 2 when any verdict is at or beyond this")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored text output")
	addSettingFlags(cmd.Flags())

	return cmd
}

func runBatch(ctx context.Context, f batchFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := f.logger
	if log == nil {
		log = zap.NewNop()
	}

	if f.plan == "" || len(f.rules) == 0 {
		return exitWith(exitCodeBadInput, errors.New("--plan and at least one rule file are required"))
	}
	var failOn schema.Verdict
	if f.failOn != "" {
		v, err := verdict.ParseVerdict(f.failOn)
		if err != nil {
			return exitWith(exitCodeBadInput, err)
		}
		failOn = v
	}

	cfg, format, err := loadSettings(f.configPath, f.settings)
	if err != nil {
		return err
	}
	planText, err := readText(f.plan)
	if err != nil {
		return exitWith(exitCodeBadInput, err)
	}

	entries := make([]schema.BatchEntry, len(f.rules))
	g, gctx := errgroup.WithContext(ctx)
	if f.jobs > 0 {
		g.SetLimit(f.jobs)
	}
	for i, arg := range f.rules {
		i, arg := i, arg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = analyzeOne(arg, planText, cfg.Match, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exitWith(exitCodeInternal, err)
	}

	report := &schema.BatchReport{
		Tool:     toolName,
		Version:  toolVersion,
		PlanFile: f.plan,
		Profile:  cfg.Profile,
		Entries:  entries,
		Meta:     schema.Meta{RunID: uuid.NewString()},
	}
	if err := writeBatch(f, format, report); err != nil {
		return exitWith(exitCodeInternal, err)
	}

	failed := 0
	reached := false
	for _, e := range entries {
		if e.Error != "" {
			failed++
			continue
		}
		if failOn != "" && verdict.Reached(e.Summary.Verdict, failOn) {
			reached = true
		}
	}
	if failed > 0 {
		return exitWith(exitCodeBadInput, fmt.Errorf("%d of %d rule files could not be analyzed", failed, len(entries)))
	}
	if reached {
		return exitWith(exitCodeFailOn, fmt.Errorf("a verdict reached --fail-on %s", failOn))
	}
	return nil
}

// analyzeOne checks a single rule document. Failures are recorded in the
// entry rather than returned so one bad file does not cancel the batch.
func analyzeOne(arg, planText string, cfg match.Config, log *zap.Logger) schema.BatchEntry {
	entry := schema.BatchEntry{RuleFile: arg, MissingItems: []string{}}
	ruleText, path, err := loadRuleFile(arg)
	if err != nil {
		log.Warn("rule file skipped", zap.String("rules", arg), zap.Error(err))
		entry.Error = err.Error()
		return entry
	}
	entry.RuleFile = path

	cov, err := coverage.Analyze(ruleText, planText, cfg)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Summary = verdict.Summarize(cov)
	entry.MissingItems = cov.AllMissingItems
	log.Debug("batch entry analyzed",
		zap.String("rules", path),
		zap.String("verdict", string(entry.Summary.Verdict)),
	)
	return entry
}

func writeBatch(f batchFlags, format string, report *schema.BatchReport) error {
	if f.out == "" {
		w := f.stdout
		if w == nil {
			w = os.Stdout
		}
		return render.WriteBatch(w, format, report, !f.noColor && !color.NoColor)
	}
	out, err := os.Create(f.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := render.WriteBatch(out, format, report, false); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
