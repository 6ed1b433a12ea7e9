package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entitylink/entitylink/internal/cmd/output"
	"github.com/entitylink/entitylink/pkg/rules"
)

// validateCmd checks the rule tables against a universe without building.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate rule tables against an entity universe",
	Long: `Validate loads the rule tables, checks every rule against the entity
universe, and reports orphaned rules (keys absent from the universe) and
contradictions (the same pair both force-matched and force-excluded).

The exit code is non-zero when any contradiction is found.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addInputFlags(validateCmd, false)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	universe, err := loadUniverse(cmd)
	if err != nil {
		return err
	}
	store, err := loadRules(cmd)
	if err != nil {
		return err
	}

	var stats rules.Stats
	messages := rules.Validate(store, universe, &stats)

	format := output.Format(outputFlag)
	if format != output.FormatTable {
		report := struct {
			Orphaned int      `json:"orphaned" yaml:"orphaned"`
			Errors   int      `json:"errors" yaml:"errors"`
			Messages []string `json:"messages" yaml:"messages"`
		}{stats.OrphanedRules, stats.Errors, messages}
		if err := formatter().Format(os.Stdout, report); err != nil {
			return err
		}
	} else {
		for _, msg := range messages {
			fmt.Println(msg)
		}
		fmt.Printf("%d rules checked: %d orphaned, %d contradictions\n",
			store.Len(), stats.OrphanedRules, stats.Errors)
	}

	if stats.Errors > 0 {
		return fmt.Errorf("rule validation found %d contradictions", stats.Errors)
	}
	return nil
}
