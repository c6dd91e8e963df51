package main

import (
	"fmt"
	"os"

	"succession/internal/config"
	"succession/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "succession",
	Short: "Succession planning deck builder",
	Long: `succession turns an incumbent's succession plan into a PowerPoint deck.

Successors are laid out three to a slide (configurable) in the template's
table, with the incumbent's role details and circular photos of everyone
involved. Plans can be built from YAML/JSON files, served over HTTP, and
saved to a local sqlite store for prefilling the next plan.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		logger, err = logging.Initialize(logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			File:       cfg.Logging.File,
			AuditFile:  cfg.Logging.AuditFile,
			Categories: cfg.Logging.Categories,
		})
		if err != nil {
			return err
		}
		logging.Boot("config loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
		logging.CloseAudit()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "succession.yaml", "Config file (missing file = defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(employeesCmd)
	rootCmd.AddCommand(plansCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
