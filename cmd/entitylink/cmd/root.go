// Package cmd implements the entitylink command line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entitylink/entitylink/internal/cmd/output"
	"github.com/entitylink/entitylink/pkg/logging"
)

var (
	configFile string
	verbose    bool
	quiet      bool
	outputFlag string

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "entitylink",
	Short: "Entity linkage with operator override rules",
	Long: `Entitylink links records describing the same real-world person,
household, or organization across two data sources into unified entity
groups, and applies declarative override rules (force-match,
force-exclude, mutual sets) to correct the automatic linkage.

Rule tables are CSV exports with the fixed six-column layout
RuleID | Key1 | Key2 | Extra | Reason | Status; the entity universe and
group databases are YAML files.`,
	PersistentPreRunE: setupCommand,
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.entitylink.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "output format: table, json, yaml (default auto-detect)")

	for _, flag := range []string{"verbose", "quiet", "output"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic("failed to bind " + flag + " flag: " + err.Error())
		}
	}
}

// initConfig reads in the config file and environment variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".entitylink")
	}

	// Load .env before Viper env binding.
	_ = godotenv.Load()

	viper.SetEnvPrefix("entitylink")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	_ = viper.ReadInConfig()

	configureLogging()
}

// setupCommand is called before any command runs.
func setupCommand(_ *cobra.Command, _ []string) error {
	if outputFlag == "" {
		outputFlag = string(output.DetectFormat(""))
	}
	_, err := output.ParseFormat(outputFlag)
	return err
}

// configureLogging sets the global log level from flags and environment.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose || viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	if quiet || viper.GetBool("quiet") {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	zerolog.SetGlobalLevel(level)
	if os.Getenv("LOG_FORMAT") == "console" {
		// Force human-readable output even when stderr is not a terminal.
		logging.SetDefault(logging.NewConsole().Level(level))
		return
	}
	logging.SetDefault(logging.Default().Level(level))
}

// formatter returns the output formatter selected by the --output flag.
func formatter() output.Formatter {
	return output.NewFormatter(output.Format(outputFlag))
}
