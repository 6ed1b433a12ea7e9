package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entitylink/entitylink/internal/cmd/output"
	"github.com/entitylink/entitylink/pkg/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the loaded rule tables",
}

// rulesListCmd prints every loaded rule with its current status.
var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules loaded from the rule tables",
	RunE:  runRulesList,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	addInputFlags(rulesListCmd, false)
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	store, err := loadRules(cmd)
	if err != nil {
		return err
	}

	format := output.Format(outputFlag)
	if format != output.FormatTable {
		report := struct {
			ForceMatches     []*rules.ForceMatch   `json:"force_matches" yaml:"force_matches"`
			ForceExcludes    []*rules.ForceExclude `json:"force_excludes" yaml:"force_excludes"`
			MutualInclusions []*rules.MutualSet    `json:"mutual_inclusions" yaml:"mutual_inclusions"`
			MutualExclusions []*rules.MutualSet    `json:"mutual_exclusions" yaml:"mutual_exclusions"`
		}{store.ForceMatches(), store.ForceExcludes(), store.MutualInclusions(), store.MutualExclusions()}
		return formatter().Format(os.Stdout, report)
	}

	data := output.Data{
		Headers: []string{"RuleId", "Type", "Keys", "Detail", "Status", "Reason"},
	}
	for _, r := range store.ForceMatches() {
		detail := ""
		if r.AnchorOverride != "" {
			detail = "anchor=" + r.AnchorOverride.String()
		}
		data.Rows = append(data.Rows, []string{
			r.ID, "force-match", r.Key1.String() + " + " + r.Key2.String(),
			detail, string(r.Status), r.Reason,
		})
	}
	for _, r := range store.ForceExcludes() {
		data.Rows = append(data.Rows, []string{
			r.ID, "force-exclude", r.Defective.String() + " / " + r.Other.String(),
			string(r.OnConflict), string(r.Status), r.Reason,
		})
	}
	for _, set := range store.MutualInclusions() {
		data.Rows = append(data.Rows, mutualRow(set, "mutual-inclusion"))
	}
	for _, set := range store.MutualExclusions() {
		data.Rows = append(data.Rows, mutualRow(set, "mutual-exclusion"))
	}
	return formatter().Format(os.Stdout, data)
}

func mutualRow(set *rules.MutualSet, ruleType string) []string {
	keys := make([]string, len(set.Keys))
	for i, k := range set.Keys {
		keys[i] = k.String()
	}
	return []string{
		set.ID, ruleType, strings.Join(keys, ", "), "", string(set.Status), set.Reason,
	}
}
