package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCommand() *cobra.Command {
	var (
		ownerID int64
		engine  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a database instance",
		Long: `Provision a new database instance for an owner.

This command:
  - Validates the owner exists and has quota left on their plan
  - Generates instance credentials
  - Creates the external database, user and grants on the engine's server
  - Commits the canonical record and an audit entry
  - Prints the connection details including the generated secret`,
		Example: `  # Create a PostgreSQL instance for owner 42
  dbfarmd create --owner 42 --engine postgresql

  # Create a Redis instance, JSON output
  dbfarmd create --owner 42 --engine redis --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			inst, err := rt.orchestrator.CreateInstance(ctx, ownerID, engine)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(inst)
			}

			fmt.Printf("Instance %s created\n", inst.ID)
			fmt.Printf("  Engine:   %s\n", inst.Engine)
			fmt.Printf("  Name:     %s\n", inst.Name)
			fmt.Printf("  Host:     %s:%d\n", inst.Host, inst.Port)
			fmt.Printf("  User:     %s\n", inst.DBUser)
			fmt.Printf("  Password: %s\n", inst.Secret)
			return nil
		},
	}

	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owning user ID")
	cmd.Flags().StringVarP(&engine, "engine", "e", "", "engine kind (postgresql, mysql, sqlserver, mongodb, redis, cassandra)")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("engine")

	return cmd
}
