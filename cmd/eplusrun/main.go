package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/louisleroy5/eplusrun/internal/config"
	"github.com/louisleroy5/eplusrun/internal/logging"
	"github.com/louisleroy5/eplusrun/internal/sim"
	"github.com/spf13/cobra"
)

var appVersion = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "eplusrun",
		Short: "EnergyPlus run orchestrator with fingerprint-keyed result caching",
		Long: `eplusrun drives the EnergyPlus simulator for one or more models.

It fingerprints each model together with its run arguments, caches the
simulation artifacts per fingerprint, migrates models across EnergyPlus
versions with the transition toolchain, and reads SQL and HTML report
artifacts back as tables.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.eplusrun/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newUpgradeCmd(),
		newReportCmd(),
		newCacheCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": appVersion})
			} else {
				fmt.Printf("eplusrun version %s\n", appVersion)
			}
		},
	}
}

// loadConfig resolves the effective configuration for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSession builds a simulation session from the command's configuration.
func newSession(cmd *cobra.Command) (*sim.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	return sim.NewSession(cfg, log)
}
