package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/MrEthical07/goSession/store/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the credential store schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			if dsn == "" {
				dsn = os.Getenv("DATABASE_URL")
			}
			if dsn == "" {
				return errors.New("DATABASE_URL or --database-url is required")
			}
			if err := postgres.Migrate(dsn, direction); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", direction)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "database-url", "", "postgres connection string (defaults to DATABASE_URL)")
	return cmd
}
