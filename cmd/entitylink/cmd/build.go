package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/entitylink/entitylink"
	"github.com/entitylink/entitylink/internal/cmd/output"
)

// buildCmd assembles the full group database.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the entity group database",
	Long: `Build loads the rule tables and the entity universe, validates the
rules, assembles one group per founder in construction-phase order, and
audits the result.

Natural-match candidates come from a precomputed similarity score file
(--scores); without one, groups are assembled from override rules alone.

Examples:
  entitylink build --universe entities.yaml --force-match fm.csv --force-exclude fe.csv
  entitylink build --universe entities.yaml --scores scores.yaml --threshold 0.8 --save-groups groups.yaml`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addInputFlags(buildCmd, true)
	buildCmd.Flags().String("save-groups", "", "write the group database to this YAML file")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	universe, err := loadUniverse(cmd)
	if err != nil {
		return err
	}
	store, err := loadRules(cmd)
	if err != nil {
		return err
	}

	opts := []entitylink.Option{
		entitylink.WithUniverse(universe),
		entitylink.WithRules(store),
	}
	if scores, err := loadScores(cmd); err != nil {
		return err
	} else if scores != nil {
		opts = append(opts, entitylink.WithScorer(entitylink.NewStaticScorer(scores)))
	}
	if threshold, _ := cmd.Flags().GetFloat64(flagThreshold); threshold > 0 {
		opts = append(opts, entitylink.WithThreshold(threshold))
	}

	linker, err := entitylink.New(opts...)
	if err != nil {
		return err
	}

	result, err := linker.Build(cmd.Context())
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save-groups"); path != "" {
		if err := entitylink.SaveGroups(path, result); err != nil {
			return err
		}
	}

	return printBuildResult(result)
}

// printBuildResult renders the group database in the selected format.
func printBuildResult(result *entitylink.Result) error {
	format := output.Format(outputFlag)
	if format != output.FormatTable {
		return formatter().Format(os.Stdout, result.Groups)
	}

	fmt.Println(result.Summary())
	fmt.Println()

	data := output.Data{
		Headers: []string{"Index", "Founder", "Phase", "Size", "Members"},
	}
	for _, g := range result.Groups {
		members := ""
		for i, m := range g.Members {
			if i > 0 {
				members += ", "
			}
			members += m.String()
		}
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(g.Index),
			g.Founder.String(),
			g.Phase.String(),
			strconv.Itoa(g.Size()),
			members,
		})
	}
	return formatter().Format(os.Stdout, data)
}
