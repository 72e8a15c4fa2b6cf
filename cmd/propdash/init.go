package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/propsync/internal/paths"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and storage",
	Long: `Init creates the configuration directory with a default config.yaml and
prepares the backend: the sqlite backend creates its database and seeds the
buckets and countries, the postgres backend runs its migrations.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if a.postgres != nil {
			if err := a.postgres.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "propdash initialized successfully")
		fmt.Fprintln(out, "  config: ", paths.ConfigFile(configDir))
		fmt.Fprintln(out, "  backend:", cfg.Backend)
		if cfg.Backend == types.BackendSQLite {
			fmt.Fprintln(out, "  data:   ", cfg.DataDir)
		}
		return nil
	},
}
