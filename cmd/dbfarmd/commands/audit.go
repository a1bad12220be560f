package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

func newAuditCommand() *cobra.Command {
	var (
		ownerID int64
		limit   int
		offset  int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail",
		Long: `Show audit entries, newest first.

Without --owner, entries for all owners are shown.`,
		Example: `  # Last 50 entries across all owners
  dbfarmd audit

  # Entries for one owner
  dbfarmd audit --owner 42 --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			var entries []*provision.AuditEntry
			if ownerID != 0 {
				entries, err = rt.store.ListAuditByOwner(ctx, ownerID, limit, offset)
			} else {
				entries, err = rt.store.ListAudit(ctx, limit, offset)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No audit entries")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOWNER\tACTION\tENTITY\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.OwnerID,
					e.Action, e.Entity, e.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&ownerID, "owner", 0, "filter by owning user ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")

	return cmd
}
