package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/labelguard/compliance-cli/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate the compliance rule set",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and compile the configured rule set",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ruleSet, err := loadRules(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := rules.NewEngine(ruleSet, cfg.Rules.AbsentMaxConf); err != nil {
			return eris.Wrap(err, "rules validate")
		}
		fmt.Printf("OK: %d rules\n", len(ruleSet))
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ruleSet, err := loadRules(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSEVERITY\tAPPLIES TO\tMESSAGE")
		for _, r := range ruleSet {
			applies := strings.Join(r.AppliesTo, ",")
			if applies == "" {
				applies = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Severity, applies, r.Message)
		}
		return tw.Flush()
	},
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}
