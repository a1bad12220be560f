package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDestroyCommand() *cobra.Command {
	var (
		ownerID    int64
		instanceID string
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy a database instance",
		Long: `Destroy an owner's database instance.

The external database and its user are dropped first; the canonical
record is only removed once the external drop succeeded. A failed drop
leaves the record in place for retry.`,
		Example: `  # Destroy an instance
  dbfarmd destroy --owner 42 --id 2f9c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			if err := rt.orchestrator.DeleteInstance(ctx, ownerID, instanceID); err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]string{"id": instanceID, "status": "destroyed"})
			}
			fmt.Printf("Instance %s destroyed\n", instanceID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owning user ID")
	cmd.Flags().StringVar(&instanceID, "id", "", "instance ID")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("id")

	return cmd
}
