package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdash/internal/rules"
	"github.com/leapstack-labs/leapdash/internal/semtype"
	"github.com/spf13/cobra"
)

// NewRulesCommand creates the rules command with its subcommands.
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate the rule library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRulesList(cmd)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List loaded rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRulesList(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "lint",
		Short: "Validate rule files",
		Long: `Check every rule in the library: referenced types must exist in the
type lattice, scores must stay within the rule's ceiling, and card
references must resolve. Generation assumes rules pass this check.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRulesLint(cmd)
		},
	})
	return cmd
}

func runRulesList(cmd *cobra.Command) error {
	cfg := getConfig(cmd.Context())
	logger := newLogger(cfg)

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Rule", "Table Type", "Dimensions", "Metrics", "Filters", "Cards"})
	for _, r := range lib.Rules() {
		tw.AppendRow(table.Row{
			r.Name, r.TableType,
			len(r.DimensionIDs()), len(r.Metrics), len(r.Filters), len(r.Cards),
		})
	}
	renderTable(cfg, cmd.OutOrStdout(), tw)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d rules loaded from %s\n", lib.Count(), cfg.RulesDir)
	return nil
}

func runRulesLint(cmd *cobra.Command) error {
	cfg := getConfig(cmd.Context())
	logger := newLogger(cfg)

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}

	types := semtype.Builtin()
	var problems []rules.Problem
	for _, r := range lib.Rules() {
		problems = append(problems, rules.Validate(r, types, lib.IsGADimension)...)
	}

	if len(problems) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "All %d rules are valid\n", lib.Count())
		return nil
	}

	for _, p := range problems {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
	}
	return fmt.Errorf("%d problems in %d rules", len(problems), lib.Count())
}
