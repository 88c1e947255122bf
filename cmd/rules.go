package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenfield-eo/recmap/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect scoring rule tables",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Parse a rule file and report its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := rules.Load(rules.File(args[0]))
		if err != nil {
			return err
		}
		for _, r := range table.Rules() {
			if r.HasAlt {
				fmt.Fprintf(cmd.OutOrStdout(), "[%g, %g] -> %g (alt %g)\n", r.Min, r.Max, r.Score, r.AltScore)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "[%g, %g] -> %g\n", r.Min, r.Max, r.Score)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rules ok\n", table.Len())
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}
