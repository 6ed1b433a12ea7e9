package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/entitylink/entitylink/internal/cmd/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) error {
	format := output.Format(outputFlag)
	if format != output.FormatTable {
		info := struct {
			Version string `json:"version" yaml:"version"`
			Commit  string `json:"commit" yaml:"commit"`
			Date    string `json:"date" yaml:"date"`
			Go      string `json:"go" yaml:"go"`
		}{Version, Commit, Date, runtime.Version()}
		return formatter().Format(os.Stdout, info)
	}

	fmt.Printf("entitylink %s (commit %s, built %s, %s)\n", Version, Commit, Date, runtime.Version())
	return nil
}
