package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	toolName    = "rulecheck"
	toolVersion = "0.1.0"
)

// Exit codes.
const (
	exitCodeInternal  = 1
	exitCodeFailOn    = 2
	exitCodeBadInput  = 3
	exitCodeAPIError  = 4
	exitCodeBadOutput = 5
)

// exitError carries a process exit code alongside the error that caused it.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "rulecheck:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitCodeInternal
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var logger *zap.Logger

	root := &cobra.Command{
		Use:           toolName,
		Short:         "Check that a test plan covers every requirement line",
		Version:       toolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	getLogger := func() *zap.Logger {
		if logger == nil {
			return zap.NewNop()
		}
		return logger
	}

	root.AddCommand(newCheckCmd(getLogger))
	root.AddCommand(newBatchCmd(getLogger))
	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newProfilesCmd())
	return root
}
