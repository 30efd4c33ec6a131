package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ebrunet/dispatchcore/core/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule source utilities",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "Validate a rule source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := rules.NewLoader(nil)
		triggers, hard, err := loader.Load(args[0], false)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d trigger rules, %d hard rules, no schema violations\n",
			args[0], len(triggers), len(hard))
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesLintCmd)
}
