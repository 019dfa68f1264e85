package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema",
		Long: `Apply the embedded schema to DATABASE_URL. Every statement is idempotent,
so running migrate against an up-to-date database is a no-op.`,
		Args: cobra.NoArgs,
		RunE: withInfra(func(ctx context.Context, cmd *cobra.Command, _ *config.Config, infra *app.Infra) error {
			if err := postgres.Migrate(ctx, infra.Pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}),
	}
}
