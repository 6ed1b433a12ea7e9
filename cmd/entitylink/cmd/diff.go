package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entitylink/entitylink"
	"github.com/entitylink/entitylink/internal/cmd/output"
	"github.com/entitylink/entitylink/pkg/diff"
)

// diffCmd compares two saved group databases.
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two saved group databases",
	Long: `Diff compares two saved group databases, typically the outputs of two
builds over different rule tables, and reports the groups that were added,
removed, or changed membership. Groups are matched by founder.

Example:
  entitylink diff --before groups-old.yaml --after groups-new.yaml`,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().String("before", "", "earlier group database YAML file (required)")
	diffCmd.Flags().String("after", "", "later group database YAML file (required)")
	diffCmd.Flags().Bool("index-changes", false, "report groups whose only change is their index")
}

func runDiff(cmd *cobra.Command, _ []string) error {
	beforePath, _ := cmd.Flags().GetString("before")
	afterPath, _ := cmd.Flags().GetString("after")
	if beforePath == "" || afterPath == "" {
		return fmt.Errorf("both --before and --after group databases are required")
	}

	before, err := entitylink.LoadGroups(beforePath)
	if err != nil {
		return err
	}
	after, err := entitylink.LoadGroups(afterPath)
	if err != nil {
		return err
	}

	var opts []diff.Option
	if report, _ := cmd.Flags().GetBool("index-changes"); report {
		opts = append(opts, diff.WithIndexChanges())
	}
	changes := diff.New(opts...).Groups(before, after)

	format := output.Format(outputFlag)
	if format != output.FormatTable {
		return formatter().Format(os.Stdout, changes)
	}

	fmt.Println(changes.Summary())
	if !changes.HasChanges() {
		return nil
	}
	fmt.Println()
	return formatter().Format(os.Stdout, output.Data{
		Headers: diff.Headers(),
		Rows:    changes.Rows(),
	})
}
