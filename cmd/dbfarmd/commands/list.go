package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var ownerID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's database instances",
		Example: `  # List instances for owner 42
  dbfarmd list --owner 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			instances, err := rt.orchestrator.ListInstances(ctx, ownerID)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(instances)
			}

			if len(instances) == 0 {
				fmt.Println("No instances")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tENGINE\tNAME\tHOST\tSTATUS\tCREATED")
			for _, inst := range instances {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s:%d\t%s\t%s\n",
					inst.ID, inst.Engine, inst.Name, inst.Host, inst.Port,
					inst.Status, inst.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owning user ID")
	cmd.MarkFlagRequired("owner")

	return cmd
}
