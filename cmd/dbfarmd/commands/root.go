package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dbfarmd",
		Short: "dbfarm - Multi-tenant database provisioning orchestrator",
		Long: `dbfarm provisions isolated database instances for tenants across
multiple engine families on shared servers.

Supported engines:
  - PostgreSQL (database + role)
  - MySQL (database + user)
  - SQL Server (database + login + user)
  - MongoDB (database + scoped user)
  - Redis (ACL user with key-prefix isolation)
  - Cassandra (keyspace + role)

Each create validates the owner and plan quota, generates credentials,
creates the external resource, then commits the canonical record and an
audit entry. Destroys drop the external resource before the record.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dbfarm.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newDestroyCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newAuditCommand())
	rootCmd.AddCommand(newUsersCommand())

	return rootCmd
}
