package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abefas/EmberTracker/database"
)

func newMigrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the backend tables (needs the service role key)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			if err := client.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")

			if !seed {
				return nil
			}
			n, err := client.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tasks\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Insert the starter task catalog when it is empty")
	return cmd
}
