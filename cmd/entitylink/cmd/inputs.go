package cmd

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/entities"
	"github.com/entitylink/entitylink/pkg/errors"
	"github.com/entitylink/entitylink/pkg/logging"
	"github.com/entitylink/entitylink/pkg/rules"
)

// Input flag names, shared by the commands that load build inputs. Each is
// also readable from the config file / environment through viper.
const (
	flagUniverse     = "universe"
	flagForceMatch   = "force-match"
	flagForceExclude = "force-exclude"
	flagScores       = "scores"
	flagThreshold    = "threshold"
)

// addInputFlags registers the build-input flags on a command.
func addInputFlags(cmd *cobra.Command, withScores bool) {
	cmd.Flags().String(flagUniverse, "", "entity universe YAML file (required)")
	cmd.Flags().String(flagForceMatch, "", "force-match rule table CSV file")
	cmd.Flags().String(flagForceExclude, "", "force-exclude rule table CSV file")
	if withScores {
		cmd.Flags().String(flagScores, "", "precomputed similarity scores YAML file")
		cmd.Flags().Float64(flagThreshold, 0, "minimum similarity score for natural candidates")
	}
	for _, flag := range []string{flagUniverse, flagForceMatch, flagForceExclude} {
		_ = viper.BindPFlag(flag, cmd.Flags().Lookup(flag))
	}
}

// inputPath resolves a flag value, falling back to viper configuration.
func inputPath(cmd *cobra.Command, flag string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return viper.GetString(flag)
}

// loadUniverse loads the entity universe named by the --universe flag.
func loadUniverse(cmd *cobra.Command) (*entities.Universe, error) {
	path := inputPath(cmd, flagUniverse)
	if path == "" {
		return nil, &errors.ValidationError{Field: flagUniverse, Message: "a universe file is required"}
	}
	return entities.LoadUniverse(path)
}

// loadRules loads the rule tables named by the rule-table flags into a
// fresh store. Structural problems are logged, not fatal; the offending
// rows are skipped the same way a build would skip them.
func loadRules(cmd *cobra.Command) (*rules.Store, error) {
	store := rules.NewStore()
	log := logging.Ctx(cmd.Context())

	if path := inputPath(cmd, flagForceMatch); path != "" {
		result, err := rules.LoadForceMatchCSV(store, path)
		if err != nil {
			return nil, err
		}
		logLoad(log, path, "force-match", result)
	}
	if path := inputPath(cmd, flagForceExclude); path != "" {
		result, err := rules.LoadForceExcludeCSV(store, path)
		if err != nil {
			return nil, err
		}
		logLoad(log, path, "force-exclude", result)
	}

	log.Debug().Int("rules", store.Len()).Msg("Loaded rule store")
	return store, nil
}

func logLoad(log *zerolog.Logger, path, table string, result *rules.LoadResult) {
	log.Info().
		Str("table", table).
		Str("path", path).
		Int("loaded", result.Loaded).
		Int("dropped", result.Dropped).
		Int("problems", len(result.Problems)).
		Msg("Loaded rule table")
	for _, p := range result.Problems {
		log.Warn().Str("table", table).Msg(p)
	}
}

// scoreFile is the on-disk shape of a precomputed similarity score table.
type scoreFile struct {
	Candidates map[entities.Key][]assemble.Candidate `yaml:"candidates"`
}

// loadScores reads a static candidate table for offline builds. Returns
// nil when no scores file was given.
func loadScores(cmd *cobra.Command) (map[entities.Key][]assemble.Candidate, error) {
	path := inputPath(cmd, flagScores)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var file scoreFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return file.Candidates, nil
}
