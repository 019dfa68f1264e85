package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	"pharmaledger/internal/core/numerator"
)

func newNextNumberCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next-number",
		Short: "Allocate the next document number",
		Long: `Allocate and print the next PREFIX-YYYYMMDD-NNNN number from the configured
sequence backend. The number is consumed.`,
		Example: `  ledgerctl next-number --prefix SALE
  ledgerctl next-number --prefix JV --date 2026-10-01`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			return numerator.ValidatePrefix(prefix)
		},
		RunE: withInfra(func(ctx context.Context, cmd *cobra.Command, cfg *config.Config, infra *app.Infra) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			date, err := dateFlag(cmd, "date")
			if err != nil {
				return err
			}
			number, err := infra.Generator(cfg).NextNumber(ctx, prefix, date)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		}),
	}
	cmd.Flags().String("prefix", "", "number prefix, e.g. SALE or JV")
	cmd.Flags().String("date", "", "document date YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("prefix")
	return cmd
}
