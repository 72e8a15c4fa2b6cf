package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/propsync/internal/paths"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

// cfg is loaded by PersistentPreRunE so every subcommand sees it.
var cfg types.Config

var rootCmd = &cobra.Command{
	Use:           "propdash",
	Short:         "propdash keeps the property dashboard in sync with its backend",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		loadDotEnv(configDir)

		c, err := resolveConfig(configDir, flagDataDir)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

// resolveConfig loads config.yaml from configDir, settles the sqlite data
// directory and validates the result.
func resolveConfig(configDir, dataDirFlag string) (types.Config, error) {
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, err
	}
	c := configFromViper(v)
	if c.Backend == types.BackendSQLite {
		if c.DataDir, err = paths.ResolveDataDir(dataDirFlag, c.DataDir); err != nil {
			return types.Config{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return types.Config{}, userErrorf("config %s: %w", paths.ConfigFile(configDir), err)
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.propsync)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory for the sqlite backend (default: $(CWD)/.propsync-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(counterCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

// resolveConfigDir follows --config-dir, then PROPSYNC_CONFIG_DIR, then the
// default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
