package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage instance owners",
	}

	cmd.AddCommand(newUsersAddCommand())
	cmd.AddCommand(newUsersListCommand())

	return cmd
}

func newUsersAddCommand() *cobra.Command {
	var (
		email string
		plan  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an instance owner",
		Example: `  # Register a user on the standard plan
  dbfarmd users add --email alice@example.com --plan standard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			existing, err := rt.store.GetUserByEmail(ctx, email)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("user %s already exists with ID %d", email, existing.ID)
			}

			user := &provision.User{Email: email, Plan: plan}
			if err := rt.store.CreateUser(ctx, user); err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(user)
			}
			fmt.Printf("User %d created (%s, plan %s)\n", user.ID, user.Email, user.Plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "user email address")
	cmd.Flags().StringVar(&plan, "plan", "free", "subscription plan (free, standard, premium)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func newUsersListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered owners",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			users, err := rt.store.ListUsers(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(users)
			}

			if len(users) == 0 {
				fmt.Println("No users")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tPLAN\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					u.ID, u.Email, u.Plan, u.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	return cmd
}
