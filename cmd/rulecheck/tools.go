package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/rulecheck/internal/profile"
	"github.com/dshills/rulecheck/internal/tokenize"
)

func newNormalizeCmd() *cobra.Command {
	var extract bool

	cmd := &cobra.Command{
		Use:   "normalize TOKEN...",
		Short: "Print the normalized key of each token",
		Long: `Normalize prints "token<TAB>key" for every argument, the key being what
matching compares. With --extract the arguments are joined into one line of
text and every check item found in it is printed instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if extract {
				for _, it := range tokenize.ExtractCheckItems(strings.Join(args, " ")) {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Kind, it.Raw, it.Key)
				}
				return tw.Flush()
			}
			for _, arg := range args {
				fmt.Fprintf(tw, "%s\t%s\n", arg, tokenize.NormalizeToken(arg))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&extract, "extract", false, "Treat the arguments as text and list its check items")
	return cmd
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List built-in profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range profile.Names() {
				p, err := profile.Load(name)
				if err != nil {
					return err
				}
				cfg := p.Config()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, cfg.Mode, cfg.ItemPolicy, p.Description)
			}
			return tw.Flush()
		},
	}
}
