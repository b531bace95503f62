package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/dshills/rulecheck/internal/config"
	"github.com/dshills/rulecheck/internal/coverage"
	"github.com/dshills/rulecheck/internal/match"
	"github.com/dshills/rulecheck/internal/profile"
	"github.com/dshills/rulecheck/internal/render"
	"github.com/dshills/rulecheck/internal/schema"
	"github.com/dshills/rulecheck/internal/suggest"
	"github.com/dshills/rulecheck/internal/verdict"
)

// ErrRuleFileNotFound is returned when neither the rule path nor its
// requirement-ID form (ID + ".txt") names a readable file.
var ErrRuleFileNotFound = errors.New("rule file not found")

// ruleFileExt is appended to a requirement ID when the rule argument is not a
// file.
const ruleFileExt = ".txt"

type checkFlags struct {
	rules           string
	plan            string
	out             string
	configPath      string
	history         []string
	suggest         bool
	suggestRequired bool
	failOn          string
	noColor         bool

	// settings holds the flags that override config keys (mode, profile,
	// format...). Only changed flags take effect.
	settings *pflag.FlagSet
	stdout   io.Writer
	logger   *zap.Logger
}

func newCheckCmd(getLogger func() *zap.Logger) *cobra.Command {
	var f checkFlags

	cmd := &cobra.Command{
		Use:   "check --rules FILE|ID --plan FILE",
		Short: "Check a test plan against a rule document",
		Long: `Check splits the rule document into lines, extracts check items from each
line (numbers with units, keywords) and reports which items the test plan
mentions. Each line is COVERED, PARTIAL, MISSING or NOT_APPLICABLE.

--rules accepts a requirement ID: when REQ1 is not a file, REQ1.txt is read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.settings = cmd.Flags()
			f.stdout = cmd.OutOrStdout()
			f.logger = getLogger()
			return runCheck(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.rules, "rules", "", "Rule document path or requirement ID (required)")
	cmd.Flags().StringVar(&f.plan, "plan", "", "Test plan path (required)")
	cmd.Flags().StringVar(&f.out, "out", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&f.configPath, "config", "", "Explicit config file")
	cmd.Flags().StringSliceVar(&f.history, "history", nil, "Prior analysis files passed to the suggestion generator")
	cmd.Flags().BoolVar(&f.suggest, "suggest", false, "Ask an LLM for test steps covering missing items")
	cmd.Flags().BoolVar(&f.suggestRequired, "suggest-required", false, "Fail (exit 4/5) when suggestions cannot be produced")
	cmd.Flags().StringVar(&f.failOn, "fail-on", "", "Exit 2 when the verdict is at or beyond this (PARTIALLY_COVERED, NOT_COVERED)")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored text output")
	addSettingFlags(cmd.Flags())

	return cmd
}

// addSettingFlags registers the flags that config.Load binds to config keys.
func addSettingFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.String("profile", d.Profile, "Profile ("+strings.Join(profile.Names(), ", ")+")")
	fs.String("mode", string(d.Match.Mode), "Matching mode (SUBSTRING, EXACT, NORMALIZED, FUZZY)")
	fs.String("item-policy", string(d.Match.ItemPolicy), "Items checked per line (NUMERIC_FIRST, ALL)")
	fs.String("empty-lines", string(d.Match.EmptyLines), "Status of lines without checked items (COVERED, NOT_APPLICABLE)")
	fs.Float64("partial-threshold", d.Match.PartialThreshold, "Minimum word similarity for a near match")
	fs.Float64("full-threshold", d.Match.FullMatchThreshold, "Whole-line similarity that keeps a line PARTIAL")
	fs.Bool("numeric-doc-check", d.Match.NumericDocumentCheck, "Require every rule number to appear in the plan")
	fs.String("provider", d.Suggest.Provider, "Suggestion provider ("+strings.Join(suggest.ProviderNames(), ", ")+")")
	fs.String("model", d.Suggest.Model, "Suggestion model")
	fs.Duration("timeout", d.Suggest.Timeout, "Suggestion call timeout")
	fs.String("format", d.Output.Format, "Output format (json, yaml, md, text)")
}

// loadSettings loads configuration and resolves the output format.
func loadSettings(configPath string, settings *pflag.FlagSet) (*config.Config, string, error) {
	cfg, err := config.Load(config.Options{Path: configPath, Flags: settings})
	if err != nil {
		return nil, "", exitWith(exitCodeBadInput, err)
	}
	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, "", exitWith(exitCodeBadInput, err)
	}
	return cfg, format, nil
}

func runCheck(ctx context.Context, f checkFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := f.logger
	if log == nil {
		log = zap.NewNop()
	}

	if f.rules == "" || f.plan == "" {
		return exitWith(exitCodeBadInput, errors.New("--rules and --plan are required"))
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
	prof, err := profile.Load(cfg.Profile)
	if err != nil {
		return exitWith(exitCodeBadInput, err)
	}

	ruleText, rulePath, err := loadRuleFile(f.rules)
	if err != nil {
		if errors.Is(err, ErrRuleFileNotFound) {
			log.Warn("rule file not found", zap.String("rules", f.rules))
		}
		return exitWith(exitCodeBadInput, err)
	}
	planText, err := readText(f.plan)
	if err != nil {
		return exitWith(exitCodeBadInput, err)
	}
	history := make([]string, 0, len(f.history))
	for _, path := range f.history {
		text, err := readText(path)
		if err != nil {
			return exitWith(exitCodeBadInput, err)
		}
		history = append(history, text)
	}

	cov, err := coverage.Analyze(ruleText, planText, cfg.Match)
	if err != nil {
		if errors.Is(err, match.ErrInvalidConfig) {
			return exitWith(exitCodeBadInput, err)
		}
		return exitWith(exitCodeInternal, err)
	}
	summary := verdict.Summarize(cov)
	log.Debug("analysis complete",
		zap.String("rules", rulePath),
		zap.String("plan", f.plan),
		zap.Int("lines", len(cov.Lines)),
		zap.String("verdict", string(summary.Verdict)),
		zap.Int("score", summary.Score),
	)

	report := &schema.Report{
		Tool:    toolName,
		Version: toolVersion,
		Input: schema.Input{
			RuleFile:             rulePath,
			PlanFile:             f.plan,
			Profile:              prof.Name,
			Mode:                 string(cfg.Match.Mode),
			ItemPolicy:           string(cfg.Match.ItemPolicy),
			EmptyLines:           string(cfg.Match.EmptyLines),
			PartialThreshold:     cfg.Match.PartialThreshold,
			FullMatchThreshold:   cfg.Match.FullMatchThreshold,
			NumericDocumentCheck: cfg.Match.NumericDocumentCheck,
		},
		Summary:  summary,
		Coverage: cov,
		Meta:     schema.Meta{RunID: uuid.NewString()},
	}

	// A suggestion failure never discards the report; it is written first and
	// the failure is reported afterwards when suggestions are required.
	var suggestErr error
	if f.suggest {
		report.Meta.Model = cfg.Suggest.Model
		report.Suggestions, suggestErr = runSuggest(ctx, cfg, prof, cov, planText, suggest.JoinHistory(history...), log)
		if suggestErr != nil {
			report.Meta.SuggestionError = suggestErr.Error()
			log.Warn("suggestions unavailable", zap.Error(suggestErr))
		}
	}

	if err := writeReport(f, format, report); err != nil {
		return exitWith(exitCodeInternal, err)
	}

	if suggestErr != nil && f.suggestRequired {
		if errors.Is(suggestErr, suggest.ErrInvalidModelOutput) {
			return exitWith(exitCodeBadOutput, suggestErr)
		}
		return exitWith(exitCodeAPIError, suggestErr)
	}

	if failOn != "" && verdict.Reached(summary.Verdict, failOn) {
		return exitWith(exitCodeFailOn, fmt.Errorf("verdict %s reached --fail-on %s", summary.Verdict, failOn))
	}
	return nil
}

func runSuggest(
	ctx context.Context,
	cfg *config.Config,
	prof profile.Profile,
	cov *schema.CoverageReport,
	planText, historyContext string,
	log *zap.Logger,
) ([]schema.Suggestion, error) {
	req := suggest.BuildSuggestionRequest(cov, planText, historyContext)

	if cfg.Suggest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Suggest.Timeout)
		defer cancel()
	}
	return suggest.Generate(ctx, req, prof, suggest.Options{
		Provider:    cfg.Suggest.Provider,
		Model:       cfg.Suggest.Model,
		APIKey:      cfg.Suggest.APIKey(cfg.Suggest.Provider),
		MaxTokens:   cfg.Suggest.MaxTokens,
		Temperature: cfg.Suggest.Temperature,
		Logger:      log,
	})
}

func writeReport(f checkFlags, format string, report *schema.Report) error {
	if f.out == "" {
		w := f.stdout
		if w == nil {
			w = os.Stdout
		}
		return render.Write(w, format, report, !f.noColor && !color.NoColor)
	}
	out, err := os.Create(f.out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := render.Write(out, format, report, false); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// loadRuleFile reads the rule document named by arg. When arg is not a file it
// is treated as a requirement ID and arg+".txt" is tried.
func loadRuleFile(arg string) (text, path string, err error) {
	candidates := []string{arg}
	if filepath.Ext(arg) != ruleFileExt {
		candidates = append(candidates, arg+ruleFileExt)
	}
	for _, p := range candidates {
		info, statErr := os.Stat(p)
		if statErr != nil || info.IsDir() {
			continue
		}
		text, err := readText(p)
		if err != nil {
			return "", "", err
		}
		return text, p, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrRuleFileNotFound, arg)
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
