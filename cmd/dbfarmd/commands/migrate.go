package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dbfarm/dbfarm/pkg/config"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending store migrations",
		Long: `Apply pending schema migrations to the instance store.

Safe to run repeatedly: already-applied migrations are skipped.`,
		Example: `  # Migrate the store named in the config
  dbfarmd migrate --config dbfarm.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			log.Info().Str("path", cfg.Store.Path).Msg("Store migrated")
			return nil
		},
	}

	return cmd
}
