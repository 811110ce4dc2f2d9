// =============================================================================
// Freight Survey Ingest - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (freightingest)
//   ├── ingestCmd  (freightingest ingest)
//   ├── queryCmd   (freightingest query)
//   └── versionCmd (freightingest version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration (YAML file + FREIGHT_* environment)
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/freight-survey-ingest/internal/config"
	"github.com/ginjaninja78/freight-survey-ingest/internal/logger"
	"github.com/ginjaninja78/freight-survey-ingest/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "freightingest",
	Short: "Freight Survey Ingest - load CBS freight survey exports into an enriched dataset",
	Long: `Freight Survey Ingest reads the CBS road freight survey exports of one
municipality (shipment and sub-trip files) together with their reference
tables, enriches every record with lookup descriptions and geographic keys,
and stores the resulting dataset for dashboards and reports.

Key Features:
  - Automatic classification of uploaded files by name and content
  - Lookup workbooks, codetables and region mappings in any combination
  - Year partitions: loading a year again replaces that year only
  - Municipality detection from the survey data itself
  - SQLite or PostgreSQL storage with filtered KPI queries
  - XLSX report of KPIs, trends and distributions

Example Usage:
  freightingest ingest                         # Process the input directory
  freightingest ingest --config ./freight.yaml # Use a custom configuration
  freightingest query kpis --dataset <id>      # Query a stored dataset`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig loads the configuration. The default config file may be
// absent, in which case defaults and the environment apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if !cmd.Flags().Changed("config") && !utils.FileExists(path) {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the application logger from the configuration.
func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFile)
}
