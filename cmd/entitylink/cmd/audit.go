package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entitylink/entitylink"
	"github.com/entitylink/entitylink/internal/cmd/output"
	"github.com/entitylink/entitylink/pkg/audit"
)

// auditCmd replays the rule tables against a saved group database.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a saved group database against the rule tables",
	Long: `Audit loads a previously saved group database and replays every active
rule against it: inclusion rules pass when both keys landed in the same
group, exclusion rules pass when they did not. Failed rules are
cross-referenced against the other rules touching the same keys to
surface the transitive conflicts that caused them.

The exit code is non-zero when any rule failed.

Example:
  entitylink audit --universe entities.yaml --force-match fm.csv --force-exclude fe.csv --groups groups.yaml`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	addInputFlags(auditCmd, false)
	auditCmd.Flags().String("groups", "", "saved group database YAML file (required)")
}

func runAudit(cmd *cobra.Command, _ []string) error {
	universe, err := loadUniverse(cmd)
	if err != nil {
		return err
	}
	store, err := loadRules(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("groups")
	if path == "" {
		return fmt.Errorf("a saved group database is required (--groups)")
	}
	groups, err := entitylink.LoadGroups(path)
	if err != nil {
		return err
	}

	linker, err := entitylink.New(
		entitylink.WithUniverse(universe),
		entitylink.WithRules(store),
	)
	if err != nil {
		return err
	}
	report := linker.Audit(cmd.Context(), groups)

	format := output.Format(outputFlag)
	if format != output.FormatTable {
		if err := formatter().Format(os.Stdout, report); err != nil {
			return err
		}
	} else {
		fmt.Println(report.Summary())
		fmt.Println()
		if err := formatter().Format(os.Stdout, output.Data{
			Headers: audit.FindingHeaders(),
			Rows:    report.FindingRows(),
		}); err != nil {
			return err
		}
		if len(report.Conflicts) > 0 {
			fmt.Println()
			if err := formatter().Format(os.Stdout, output.Data{
				Headers: audit.ConflictHeaders(),
				Rows:    report.ConflictRows(),
			}); err != nil {
				return err
			}
		}
	}

	if !report.Clean() {
		return fmt.Errorf("audit found %d failed rules", report.Failed)
	}
	return nil
}
